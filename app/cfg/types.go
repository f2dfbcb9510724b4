package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	Port              string
	WorkerCount       int
	SchedulerInterval int
	RefreshInterval   int
	FetchTimeout      int
	APIAccessKey      string
	SeedFile          string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
