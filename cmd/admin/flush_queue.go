// Admin tool: inspect or flush the offline queue in a Postgres deployment.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres connection string")
	flush := flag.Bool("flush", false, "Delete all queued operations instead of listing them")
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "no DSN: pass -dsn or set DATABASE_URL")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if *flush {
		res, err := db.Exec("DELETE FROM queued_operations")
		if err != nil {
			panic(err)
		}
		n, _ := res.RowsAffected()
		fmt.Printf("Flushed %d queued operations\n", n)
		return
	}

	rows, err := db.Query("SELECT id, op_type, enqueued_at FROM queued_operations ORDER BY seq ASC")
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id, opType, enqueuedAt string
		if err := rows.Scan(&id, &opType, &enqueuedAt); err != nil {
			panic(err)
		}
		fmt.Printf("%s  %-20s %s\n", id, opType, enqueuedAt)
		count++
	}
	if err := rows.Err(); err != nil {
		panic(err)
	}
	fmt.Printf("%d queued operations\n", count)
}
