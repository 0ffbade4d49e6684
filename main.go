package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/milk9111/physics2d/prefabs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// run drives the scene named in args until the step count is reached, the context is
// cancelled, or a step fails. The driver is closed before returning.
func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("physics2d", flag.ContinueOnError)
	sceneName := flags.String("scene", prefabs.DefaultScene, "scene file in prefabs/ (embedded copy used when missing on disk)")
	steps := flags.Int("steps", 600, "number of steps to run; ignored with -watch")
	statsEvery := flags.Int("stats", 60, "log stats every N steps (0 disables)")
	watch := flags.Bool("watch", false, "run in real time and reload the scene when prefabs/ changes")
	if err := flags.Parse(args); err != nil {
		return err
	}

	driver, err := NewDriver(ctx, *sceneName, *statsEvery)
	if err != nil {
		return err
	}
	defer driver.Close()

	if *watch {
		return runWatched(ctx, driver)
	}

	start := time.Now()
	for i := 0; i < *steps; i++ {
		if err := ctx.Err(); err != nil {
			log.Printf("Driver: stopped after %d steps", i)
			return nil
		}
		if err := driver.Update(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	log.Printf("Driver: %d steps in %v", *steps, time.Since(start))
	return nil
}

func runWatched(ctx context.Context, driver *Driver) error {
	watcher, err := prefabs.NewWatcher("prefabs", "prefabs/scripts")
	if err != nil {
		return err
	}
	defer watcher.Close()

	ticker := time.NewTicker(time.Duration(driver.world.TimeStep * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-watcher.Events:
			log.Printf("Driver: %s changed, reloading", change.Path)
			if err := driver.Reload(); err != nil {
				log.Printf("Driver: reload failed: %v", err)
			}
		case err := <-watcher.Errors:
			log.Printf("Driver: watch error: %v", err)
		case <-ticker.C:
			if err := driver.Update(); err != nil {
				return err
			}
		}
	}
}
