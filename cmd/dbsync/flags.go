package main

import (
	"flag"
	"io"
	"strings"
	"time"
)

// Flags holds all command-line flags
type Flags struct {
	// Commands
	List       *bool
	ListTarget *bool
	Migrate    *bool
	Table      *string // migrate a single table
	Export     *bool
	Import     *string

	// Options
	Config         *string
	Reverse        *bool
	Output         *string
	OutputDir      *string
	Include        *string
	Exclude        *string
	Drop           *bool
	Convert        *bool
	Data           *bool
	Compress       *bool
	HonorDelimiter *bool
	TableTimeout   *time.Duration

	// Logging and metrics
	LogLevel      *string
	LogJSON       *bool
	MetricsListen *string

	// Config Creation
	CreateConfig *bool

	// Misc
	Version *bool
	Help    *bool

	set map[string]bool
}

// ParseFlags defines and parses all command-line flags
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	fs := flag.NewFlagSet("dbsync", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = PrintHelp

	f := &Flags{}

	// Commands
	f.List = fs.Bool("list", false, "List tables of the source database")
	f.ListTarget = fs.Bool("list-target", false, "List tables of the target database")
	f.Migrate = fs.Bool("migrate", false, "Migrate all tables from source to target")
	f.Table = fs.String("table", "", "Migrate a single table from source to target (table name)")
	f.Export = fs.Bool("export", false, "Export the source database to a SQL script")
	f.Import = fs.String("import", "", "Execute a SQL script against the target database (file path)")

	// Options
	f.Config = fs.String("config", "", "Configuration file path (default: $"+configEnv+" or "+defaultConfigFile+")")
	f.Reverse = fs.Bool("reverse", false, "Swap source and target")
	f.Output = fs.String("output", "", "Export file path (default: <output-dir>/export_<db>_<timestamp>.sql)")
	f.OutputDir = fs.String("output-dir", "", "Directory for exports with generated names")
	f.Include = fs.String("include", "", "Only these tables (comma-separated)")
	f.Exclude = fs.String("exclude", "", "Skip these tables (comma-separated)")
	f.Drop = fs.Bool("drop", false, "Drop target tables before creating them")
	f.Convert = fs.Bool("convert", true, "Convert column types between engines")
	f.Data = fs.Bool("data", true, "Include table data in exports")
	f.Compress = fs.Bool("compress", false, "Compress exports with zstd")
	f.HonorDelimiter = fs.Bool("honor-delimiter", false, "Import: treat DELIMITER lines as delimiter changes")
	f.TableTimeout = fs.Duration("table-timeout", 0, "Time limit per table, e.g. 10m (0 = none)")

	// Logging and metrics
	f.LogLevel = fs.String("log-level", "", "Log level: debug, info, warn, error")
	f.LogJSON = fs.Bool("log-json", false, "Write logs as JSON")
	f.MetricsListen = fs.String("metrics-listen", "", "Serve Prometheus metrics on this address, e.g. :9108")

	// Config Creation
	f.CreateConfig = fs.Bool("create-config", false, "Create sample config file")

	// Misc
	f.Version = fs.Bool("version", false, "Show version information")
	f.Help = fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// IsSet reports whether the flag was given on the command line.
func (f *Flags) IsSet(name string) bool {
	return f.set[name]
}

// ConfigPath returns -config or the default path.
func (f *Flags) ConfigPath() string {
	if *f.Config != "" {
		return *f.Config
	}
	return DefaultConfigPath()
}

// Apply overrides config values with flags given on the command line.
func (f *Flags) Apply(c *Config) {
	if *f.Reverse {
		c.Source, c.Target = c.Target, c.Source
	}
	if f.IsSet("include") {
		c.Sync.IncludeTables = splitList(*f.Include)
	}
	if f.IsSet("exclude") {
		c.Sync.ExcludeTables = splitList(*f.Exclude)
	}
	if f.IsSet("drop") {
		c.Sync.DropTargetTables = *f.Drop
	}
	if f.IsSet("convert") {
		c.Sync.ConvertTypes = *f.Convert
	}
	if f.IsSet("table-timeout") {
		c.Sync.TableTimeout = *f.TableTimeout
	}
	if f.IsSet("honor-delimiter") {
		c.Sync.HonorDelimiter = *f.HonorDelimiter
	}
	if f.IsSet("output-dir") {
		c.Export.OutputDir = *f.OutputDir
	}
	if f.IsSet("data") {
		c.Export.IncludeData = *f.Data
	}
	if f.IsSet("compress") {
		c.Export.Compress = *f.Compress
	}
	if *f.LogLevel != "" {
		c.Logging.Level = *f.LogLevel
	}
	if *f.LogJSON {
		c.Logging.JSON = true
	}
	if *f.MetricsListen != "" {
		c.Metrics.Listen = *f.MetricsListen
	}
}

// commandWasSpecified checks if any command was specified
func (f *Flags) commandWasSpecified() bool {
	return *f.List || *f.ListTarget || *f.Migrate || *f.Table != "" || *f.Export || *f.Import != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
