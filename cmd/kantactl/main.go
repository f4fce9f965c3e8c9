// Command kantactl is a small REPL exercising insert/lookup/delete/
// range/stats against a store rooted at a data directory, grounded on
// the teacher's examples/basic and examples/configuration programs.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nireo/kantadb"
)

var dataDir = flag.String("dir", "kantadb_data", "directory to store run files in")
var debug = flag.Bool("debug", false, "enable verbose diagnostic logging")

func main() {
	flag.Parse()

	cfg := kantadb.DefaultConfiguration()
	cfg.StorageDir = *dataDir
	cfg.Debug = *debug

	db, err := kantadb.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("kantactl — commands: put <k> <v> | get <k> | del <k> | range <lo> <hi> | size | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if !runCommand(db, scanner.Text()) {
			break
		}
	}
}

func runCommand(db *kantadb.DB, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch fields[0] {
	case "quit", "exit":
		return false

	case "put":
		if len(fields) != 3 {
			fmt.Println("usage: put <key> <value>")
			return true
		}
		k, err1 := strconv.ParseInt(fields[1], 10, 64)
		v, err2 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil {
			fmt.Println("key and value must be integers")
			return true
		}
		db.Put(k, v)

	case "get":
		if len(fields) != 2 {
			fmt.Println("usage: get <key>")
			return true
		}
		k, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			fmt.Println("key must be an integer")
			return true
		}
		if v, ok := db.Get(k); ok {
			fmt.Println(v)
		} else {
			fmt.Println("(not found)")
		}

	case "del":
		if len(fields) != 2 {
			fmt.Println("usage: del <key>")
			return true
		}
		k, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			fmt.Println("key must be an integer")
			return true
		}
		db.Delete(k)

	case "range":
		if len(fields) != 3 {
			fmt.Println("usage: range <lo> <hi>")
			return true
		}
		lo, err1 := strconv.ParseInt(fields[1], 10, 64)
		hi, err2 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil {
			fmt.Println("lo and hi must be integers")
			return true
		}
		for _, p := range db.Range(lo, hi) {
			fmt.Printf("%d -> %d\n", p.Key, p.Value)
		}

	case "size":
		fmt.Println(db.Size())

	default:
		fmt.Printf("unknown command: %s\n", fields[0])
	}

	return true
}
