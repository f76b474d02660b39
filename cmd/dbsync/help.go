package main

import "fmt"

const version = "1.0.0"

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("dbsync version %s\n", version)
	fmt.Println("Database migration, export and import for MySQL, SQLite and PostgreSQL")
}

// PrintHelp prints comprehensive help information
func PrintHelp() {
	fmt.Println("dbsync - move tables between MySQL, SQLite and PostgreSQL")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Println("USAGE:")
	fmt.Println("  dbsync [command] [options]")
	fmt.Println()

	fmt.Println("COMMANDS:")
	fmt.Println("  -list                      List tables of the source database")
	fmt.Println("  -list-target               List tables of the target database")
	fmt.Println("  -migrate                   Migrate all tables from source to target")
	fmt.Println("  -table <name>              Migrate one table from source to target")
	fmt.Println("  -export                    Export the source database to a SQL script")
	fmt.Println("  -import <file>             Execute a SQL script (.sql or .sql.zst) on the target")
	fmt.Println("  -create-config             Write a sample config file")
	fmt.Println()

	fmt.Println("OPTIONS:")
	fmt.Println("  -config <file>             Config file (default: $DBSYNC_CONFIG or dbsync.yaml)")
	fmt.Println("  -reverse                   Swap source and target")
	fmt.Println("  -include <t1,t2>           Only these tables")
	fmt.Println("  -exclude <t1,t2>           Skip these tables")
	fmt.Println("  -drop                      Drop target tables before creating them")
	fmt.Println("  -convert=false             Copy DDL without type conversion")
	fmt.Println("  -table-timeout <dur>       Time limit per table, e.g. 10m")
	fmt.Println("  -output <file>             Export file path")
	fmt.Println("  -output-dir <dir>          Directory for generated export names")
	fmt.Println("  -data=false                Export structure only")
	fmt.Println("  -compress                  zstd-compress the export (.zst)")
	fmt.Println("  -honor-delimiter           Import: DELIMITER changes the statement delimiter")
	fmt.Println()

	fmt.Println("LOGGING AND METRICS:")
	fmt.Println("  -log-level <level>         debug, info, warn, error (default: info)")
	fmt.Println("  -log-json                  JSON logs instead of console output")
	fmt.Println("  -metrics-listen <addr>     Serve Prometheus metrics, e.g. :9108")
	fmt.Println()

	fmt.Println("EXAMPLES:")
	fmt.Println("  dbsync -create-config -config dbsync.yaml")
	fmt.Println("  dbsync -migrate -drop -exclude sessions,cache")
	fmt.Println("  dbsync -migrate -reverse")
	fmt.Println("  dbsync -export -compress -output-dir exports")
	fmt.Println("  dbsync -import exports/export_shop_20260102_030405.sql.zst")
	fmt.Println()
}
