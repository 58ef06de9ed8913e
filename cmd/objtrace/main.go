// objtrace CLI - offline triage of allocation snapshot histories and dumps
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/objtrace/history"
	"github.com/chazu/objtrace/manifest"
	"github.com/chazu/objtrace/snapshot"
)

func main() {
	dbPath := flag.String("db", "", "Snapshot history database path")
	configDir := flag.String("config", "", "Directory containing objtrace.toml (overrides -db)")
	report := flag.Bool("report", false, "Print live-count report from the latest snapshot")
	lifetime := flag.Bool("lifetime", false, "Print lifetime-total report from the latest snapshot")
	growth := flag.String("growth", "", "Print the live-count series for one class")
	decode := flag.String("decode", "", "Decode a CBOR snapshot file and print it")
	listClasses := flag.Bool("classes", false, "List every class seen across the history")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: objtrace [options]\n\n")
		fmt.Fprintf(os.Stderr, "Reads allocation snapshot histories written by a tracked host process.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  objtrace -db objtrace.db -report        # Live counts, latest snapshot\n")
		fmt.Fprintf(os.Stderr, "  objtrace -db objtrace.db -lifetime      # Lifetime totals\n")
		fmt.Fprintf(os.Stderr, "  objtrace -db objtrace.db -growth MyBox  # Count series for MyBox\n")
		fmt.Fprintf(os.Stderr, "  objtrace -decode snap.cbor              # Dump one snapshot file\n")
		fmt.Fprintf(os.Stderr, "  objtrace -config . -report              # Resolve db via objtrace.toml\n")
	}
	flag.Parse()

	if *decode != "" {
		if err := decodeFile(*decode); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path := *dbPath
	if *configDir != "" {
		m, err := manifest.Load(*configDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := m.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path = m.HistoryPath()
	}
	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *report:
		err = printLatest(store, false)
	case *lifetime:
		err = printLatest(store, true)
	case *growth != "":
		err = printGrowth(store, *growth)
	case *listClasses:
		err = printClasses(store)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printLatest renders the latest snapshot in the registry's report
// format: one "<value>\t<class>" line per class.
func printLatest(store *history.Store, lifetime bool) error {
	snap, err := store.Latest()
	if err != nil {
		return err
	}
	fmt.Printf("snapshot taken %s\n", snap.TakenAt.Format(time.RFC3339))
	lines := 0
	for _, cs := range snap.Classes {
		value := cs.Count
		if lifetime {
			value = cs.Total
		}
		if value == 0 {
			continue
		}
		fmt.Printf("%d\t%s\n", value, cs.Class)
		lines++
	}
	if lines == 0 {
		fmt.Println("no objects")
	}
	return nil
}

func printGrowth(store *history.Store, class string) error {
	points, err := store.Growth(class)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Printf("class %s does not appear in the history\n", class)
		return nil
	}
	for _, p := range points {
		fmt.Printf("%s\tcount=%d\ttotal=%d\tpeak=%d\n",
			p.TakenAt.Format(time.RFC3339), p.Count, p.Total, p.Peak)
	}
	return nil
}

func printClasses(store *history.Store) error {
	classes, err := store.Classes()
	if err != nil {
		return err
	}
	for _, class := range classes {
		fmt.Println(class)
	}
	return nil
}

// decodeFile prints one CBOR snapshot file, recorded instances included.
func decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return err
	}
	fmt.Printf("snapshot taken %s\n", snap.TakenAt.Format(time.RFC3339))
	for _, cs := range snap.Classes {
		fmt.Printf("%s\tcount=%d\ttotal=%d\tpeak=%d\n", cs.Class, cs.Count, cs.Total, cs.Peak)
		for _, rec := range cs.Recorded {
			line := "  " + rec.Ref
			if rec.Tag != "" {
				line += "\t" + strings.ReplaceAll(rec.Tag, "\n", " ")
			}
			fmt.Println(line)
		}
	}
	return nil
}
