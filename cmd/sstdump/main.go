// Command sstdump inspects a single table file on disk: list its entries,
// fetch one key, or print summary information (path, size, entry count).
//
// Usage:
//
//	sstdump --file=<path> <command> [options]
//
// Commands:
//
//	scan          Print all key-value pairs
//	get <key>     Print the value for a key
//	info          Print file path, file size and entry count
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nyxdb/sstable/internal/logging"
	"github.com/nyxdb/sstable/internal/table"
)

var (
	filePath  = flag.String("file", "", "Path to the table file (required)")
	hexOutput = flag.Bool("hex", false, "Output keys and values in hex format")
	limit     = flag.Int("limit", 0, "Limit number of entries (0 = unlimited)")
	verbose   = flag.Bool("v", false, "Enable debug logging to stderr")
	help      = flag.Bool("help", false, "Print help")
)

func main() {
	flag.Parse()

	if *help || *filePath == "" || len(flag.Args()) == 0 {
		printUsage()
		if *filePath == "" && !*help {
			os.Exit(1)
		}
		return
	}

	var err error
	switch cmd, args := flag.Args()[0], flag.Args()[1:]; cmd {
	case "scan":
		err = cmdScan()
	case "get":
		err = cmdGet(args)
	case "info":
		err = cmdInfo()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("sstdump - table file inspection tool")
	fmt.Println()
	fmt.Println("Usage: sstdump --file=<path> <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan          Print all key-value pairs")
	fmt.Println("  get <key>     Print the value for a key")
	fmt.Println("  info          Print file path, file size and entry count")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}

func openTable() (*table.Table, func(), error) {
	f, err := os.Open(*filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat file: %w", err)
	}

	opts := table.DefaultOptions()
	if *verbose {
		opts.Logger = logging.NewDefaultLogger(logging.LevelDebug)
	}

	t, err := table.Open(f, info.Size(), opts)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open table: %w", err)
	}
	return t, func() { t.Close() }, nil
}

func formatOutput(data []byte) string {
	if *hexOutput {
		return hex.EncodeToString(data)
	}
	for _, b := range data {
		if b < 32 || b > 126 {
			return hex.EncodeToString(data)
		}
	}
	return string(data)
}

func parseInput(s string) []byte {
	if strings.HasPrefix(s, "0x") {
		if decoded, err := hex.DecodeString(s[2:]); err == nil {
			return decoded
		}
	}
	return []byte(s)
}

func cmdScan() error {
	t, closeFn, err := openTable()
	if err != nil {
		return err
	}
	defer closeFn()

	it := t.NewIterator()
	count := 0
	for it.SeekToFirst(); it.Valid(); it.Advance() {
		fmt.Printf("%s => %s\n", formatOutput(it.Key()), formatOutput(it.Value()))
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	fmt.Printf("\n(%d entries scanned)\n", count)
	return nil
}

func cmdGet(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: sstdump --file=<path> get <key>")
	}

	t, closeFn, err := openTable()
	if err != nil {
		return err
	}
	defer closeFn()

	value, err := t.Get(parseInput(args[0]))
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	fmt.Println(formatOutput(value))
	return nil
}

func cmdInfo() error {
	f, err := os.Open(*filePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	t, closeFn, err := openTable()
	if err != nil {
		return err
	}
	defer closeFn()

	count := 0
	it := t.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Advance() {
		count++
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("iterator error while counting entries: %w", err)
	}

	fmt.Printf("File: %s\n", *filePath)
	fmt.Printf("Size: %d bytes\n", info.Size())
	fmt.Printf("Entries: %d\n", count)
	return nil
}
