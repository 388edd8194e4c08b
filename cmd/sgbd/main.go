// Command sgbd is the interactive SQL-like shell over the paged engine.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/lunaire/sgbd/pkg/admin"
	"github.com/lunaire/sgbd/pkg/backup"
	"github.com/lunaire/sgbd/pkg/config"
	"github.com/lunaire/sgbd/pkg/sqllang"
)

const banner = `
sgbd - miniature paged relational engine
Type EXIT to flush and quit.
`

// CLI drives the read-eval-print loop: read a line, parse it, execute
// it, print the result, repeat until EXIT or EOF.
type CLI struct {
	exec    *sqllang.Executor
	scanner *bufio.Scanner
}

func NewCLI(cfg *config.Config) (*CLI, error) {
	exec, err := sqllang.NewExecutor(cfg)
	if err != nil {
		return nil, err
	}
	return &CLI{exec: exec, scanner: bufio.NewScanner(os.Stdin)}, nil
}

func (c *CLI) Run() {
	fmt.Print(banner)
	for {
		fmt.Print("sql> ")
		if !c.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		shouldExit := c.executeLine(line)
		if shouldExit {
			return
		}
	}
}

// executeLine parses and runs one statement, printing its result or
// error. Errors never abort the loop: they bubble to this boundary and
// are printed, matching the propagation rule that only EXIT persists
// state.
func (c *CLI) executeLine(line string) (shouldExit bool) {
	stmt, err := sqllang.Parse(line)
	if err != nil {
		fmt.Printf("Erreur : %v\n", err)
		return false
	}

	res, err := c.exec.Exec(stmt)
	if err != nil {
		fmt.Printf("Erreur : %v\n", err)
		return false
	}

	for _, row := range res.Rows {
		fmt.Println(row)
	}
	if res.Summary != "" {
		fmt.Println(res.Summary)
	}
	if res.ShouldExit {
		fmt.Println("Au revoir !")
		return true
	}
	return false
}

func main() {
	dbpath := flag.String("dbpath", "", "override the config file's dbpath")
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	adminAddr := flag.String("admin", "", "start the read-only admin HTTP server on this address (e.g. :8090)")
	backupDir := flag.String("backup", "", "flush and write a compressed snapshot to this directory, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("sgbd: failed to load config: %v", err)
	}
	if *dbpath != "" {
		cfg.DBPath = *dbpath
	}
	if err := os.MkdirAll(cfg.DBPath, 0755); err != nil {
		log.Fatalf("sgbd: failed to create dbpath %s: %v", cfg.DBPath, err)
	}

	cli, err := NewCLI(cfg)
	if err != nil {
		log.Fatalf("sgbd: failed to start: %v", err)
	}
	defer cli.exec.Store.Close()

	if *backupDir != "" {
		if err := cli.exec.Pool.FlushBuffers(); err != nil {
			log.Fatalf("sgbd: flush before backup failed: %v", err)
		}
		if err := cli.exec.Catalog.Save(cfg.DBPath); err != nil {
			log.Fatalf("sgbd: catalog save before backup failed: %v", err)
		}
		path, err := backup.Snapshot(cfg.DBPath, *backupDir, time.Now())
		if err != nil {
			log.Fatalf("sgbd: backup failed: %v", err)
		}
		fmt.Printf("Backup written to %s\n", path)
		return
	}

	if *adminAddr != "" {
		srv := admin.New(cli.exec.Store, cli.exec.Pool, cli.exec.Catalog)
		go func() {
			if err := srv.ListenAndServe(*adminAddr); err != nil {
				log.Printf("sgbd: admin server stopped: %v", err)
			}
		}()
	}

	cli.Run()
}
