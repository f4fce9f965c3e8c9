// Command kantadb-bench is the teacher's benchmark driver
// (cmd/benchmark.go), adapted to the integer key/value store: it
// writes a configurable number of random keys and optionally times
// reading them back.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/nireo/kantadb"
)

var amount = flag.Int("amount", 10000, "the amount of items to write and get from the database")
var testRead = flag.Bool("read", false, "if the program should also benchmark reading the values")

func init() {
	flag.Parse()
}

func main() {
	rand.Seed(time.Now().UnixNano())

	db, err := kantadb.New(kantadb.DefaultConfiguration())
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}

	log.Printf("writing %d key-value pairs to database", *amount)
	startTime := time.Now()
	keys := make([]int64, 0, *amount)
	for i := 0; i < *amount; i++ {
		k := rand.Int63()
		db.Put(k, k*2)
		keys = append(keys, k)
	}

	log.Printf("writes took %v", time.Since(startTime))
	if *testRead {
		readStart := time.Now()
		for _, k := range keys {
			if _, ok := db.Get(k); !ok {
				log.Printf("error getting key: %d", k)
			}
		}
		log.Printf("reads took %v", time.Since(readStart))
	}

	db.Close()
	if err := os.RemoveAll(db.Directory()); err != nil {
		log.Printf("could not delete directory: %s", err)
	}
}
