// Command client is the terminal companion to the contribution service:
// it keeps a durable local mirror of the collection and pushes changes to
// the API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"greenalgeria-api/internal/client/api"
	"greenalgeria-api/internal/client/cache"
	"greenalgeria-api/internal/client/geoloc"
	"greenalgeria-api/internal/client/view"
	"greenalgeria-api/internal/geo"
	"greenalgeria-api/internal/models"
	"greenalgeria-api/internal/utils"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, err := newApp()
	if err != nil {
		log.Fatalf("[Client] %v", err)
	}
	defer app.close()

	cmd, args := os.Args[1], os.Args[2:]
	if err := app.run(cmd, args); err != nil {
		log.Fatalf("[Client] %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: client <command> [flags]

commands:
  add      record a new contribution locally and submit it
  list     show cached contributions (filter, sort)
  stats    show collection totals
  edit     change fields of a cached contribution
  remove   delete a cached contribution
  import   merge an exported JSON file into the cache
  export   write the cache as a JSON file
  latest   show the newest contribution on the server
  locate   resolve the current position via an external locator command
  sync     pull the server collection into the cache`)
}

type app struct {
	store    *cache.Store
	api      *api.Client
	boundary *geo.Boundary
}

func newApp() (*app, error) {
	baseURL := envOr("API_URL", "http://localhost:8080")
	apiKey := os.Getenv("API_KEY")
	cacheDir := envOr("CACHE_DIR", defaultCacheDir())

	boundary := geo.Default()
	if path := os.Getenv("BOUNDARY_PATH"); path != "" {
		loaded, err := geo.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load boundary: %w", err)
		}
		boundary = loaded
	}

	store, err := cache.Open(cacheDir)
	if err != nil {
		return nil, err
	}

	return &app{
		store:    store,
		api:      api.New(baseURL, apiKey, boundary),
		boundary: boundary,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		log.Printf("[Client] Failed to close local store: %v", err)
	}
}

func (a *app) run(cmd string, args []string) error {
	ctx := context.Background()

	switch cmd {
	case "add":
		return a.add(ctx, args)
	case "list":
		return a.list(args)
	case "stats":
		return a.stats()
	case "edit":
		return a.edit(ctx, args)
	case "remove":
		return a.remove(ctx, args)
	case "import":
		return a.importFile(args)
	case "export":
		return a.exportFile(args)
	case "latest":
		return a.latest(ctx)
	case "locate":
		return a.locate(ctx, args)
	case "sync":
		return a.sync(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	nom := fs.String("nom", "", "contributor name (required)")
	adresse := fs.String("adresse", "", "address or place description")
	treeType := fs.String("type", "", "tree species (required)")
	quantite := fs.Int("quantite", 1, "number of trees planted")
	lat := fs.Float64("lat", 0, "latitude (required)")
	lng := fs.Float64("lng", 0, "longitude (required)")
	date := fs.String("date", "", "planting date, YYYY-MM-DD")
	photoPath := fs.String("photo", "", "path to a photo to upload")
	localOnly := fs.Bool("local", false, "keep the entry local, do not submit")
	fs.Parse(args)

	contrib := &models.Contribution{
		ID:        cache.LocalID(),
		Nom:       *nom,
		Adresse:   *adresse,
		Type:      *treeType,
		Quantite:  *quantite,
		Lat:       *lat,
		Lng:       *lng,
		CreatedAt: models.NowMillis(),
	}
	if *date != "" {
		contrib.Date = date
	}

	if *photoPath != "" {
		data, err := os.ReadFile(*photoPath)
		if err != nil {
			return fmt.Errorf("failed to read photo: %w", err)
		}
		uploaded, err := a.api.Upload(ctx, filepath.Base(*photoPath), data)
		if err != nil {
			return err
		}
		contrib.Photo = models.Photo(uploaded.URL)
		// Trust the photo's embedded position when none was given.
		if *lat == 0 && *lng == 0 && uploaded.Lat != nil && uploaded.Lng != nil {
			contrib.Lat = *uploaded.Lat
			contrib.Lng = *uploaded.Lng
			log.Printf("[Client] Using photo position %.4f,%.4f", contrib.Lat, contrib.Lng)
		}
		if contrib.Date == nil && uploaded.TakenAt != "" {
			contrib.Date = &uploaded.TakenAt
		}
	}

	contrib.EnsureDate()

	if err := a.api.ValidateSubmission(contrib); err != nil {
		return err
	}

	if err := a.store.Add(contrib); err != nil {
		return err
	}
	log.Printf("[Client] Saved locally as %s", contrib.ID)

	if *localOnly {
		return nil
	}

	insertedID, err := a.api.Submit(ctx, contrib)
	if err != nil {
		log.Printf("[Client] Submission failed, entry kept locally: %v", err)
		return nil
	}
	log.Printf("[Client] Submitted as %s", insertedID)
	return nil
}

func (a *app) list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	query := fs.String("query", "", "match against name, address and species")
	treeType := fs.String("type", "", "keep only this species")
	sortBy := fs.String("sort", "recent", "sort order: recent, nom, type")
	fs.Parse(args)

	all := a.store.All()
	filtered := view.Apply(all, view.Filter{
		Query: *query,
		Type:  *treeType,
		Sort:  view.SortOrder(*sortBy),
	})

	for _, e := range view.Rows(filtered) {
		printRow(e)
	}
	if len(filtered) > view.ListCap {
		fmt.Printf("... %d more match the filter\n", len(filtered)-view.ListCap)
	}

	stats := view.ComputeStats(all, filtered)
	fmt.Printf("\n%d entries, %d trees, %d species (%d shown)\n",
		stats.Entries, stats.TotalTrees, stats.DistinctTypes, stats.Visible)
	return nil
}

func (a *app) stats() error {
	all := a.store.All()
	stats := view.ComputeStats(all, all)
	fmt.Printf("entries: %d\ntrees:   %d\nspecies: %d\n",
		stats.Entries, stats.TotalTrees, stats.DistinctTypes)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.String("id", "", "contribution id (required)")
	nom := fs.String("nom", "", "new name")
	adresse := fs.String("adresse", "", "new address")
	treeType := fs.String("type", "", "new species")
	quantite := fs.Int("quantite", 0, "new quantity")
	lat := fs.Float64("lat", 0, "new latitude")
	lng := fs.Float64("lng", 0, "new longitude")
	date := fs.String("date", "", "new date")
	push := fs.Bool("push", false, "also push the edit to the server")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("edit: -id is required")
	}

	patch := &models.ContributionPatch{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "nom":
			patch.Nom = nom
		case "adresse":
			patch.Adresse = adresse
		case "type":
			patch.Type = treeType
		case "quantite":
			patch.Quantite = quantite
		case "lat":
			patch.Lat = lat
		case "lng":
			patch.Lng = lng
		case "date":
			patch.Date = date
		}
	})

	updated, err := a.store.Edit(*id, patch)
	if err != nil {
		return err
	}
	log.Printf("[Client] Updated %s", updated.ID)

	if *push {
		if _, err := a.api.Update(ctx, *id, patch); err != nil {
			log.Printf("[Client] Server update failed: %v", err)
		}
	}
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	id := fs.String("id", "", "contribution id (required)")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	push := fs.Bool("push", false, "also delete on the server")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("remove: -id is required")
	}
	if !*yes && !confirm(fmt.Sprintf("delete contribution %s?", *id)) {
		log.Printf("[Client] Aborted")
		return nil
	}

	if err := a.store.Remove(*id); err != nil {
		return err
	}
	log.Printf("[Client] Removed %s", *id)

	if *push {
		if err := a.api.Delete(ctx, *id); err != nil {
			log.Printf("[Client] Server delete failed: %v", err)
		}
	}
	return nil
}

func (a *app) importFile(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "exported JSON file (required)")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("import: -file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	records, err := cache.ParseExport(data)
	if err != nil {
		return err
	}

	imported, err := a.store.Import(records)
	if err != nil {
		return err
	}
	log.Printf("[Client] Imported %d of %d entries", imported, len(records))
	return nil
}

func (a *app) exportFile(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	file := fs.String("file", "", "destination file, defaults to stdout")
	fs.Parse(args)

	data, err := a.store.Export()
	if err != nil {
		return err
	}
	if *file == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(*file, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	log.Printf("[Client] Exported %d entries to %s", a.store.Len(), *file)
	return nil
}

func (a *app) latest(ctx context.Context) error {
	latest, err := a.api.Latest(ctx)
	if err != nil {
		return err
	}
	if latest == nil {
		fmt.Println("no contributions yet")
		return nil
	}
	printRow(latest)
	return nil
}

// locate runs the geolocation fallback chain over an external locator
// command (the terminal stand-in for a device position provider). With
// explicit -lat/-lng it just validates the manual position, the map-click
// equivalent.
func (a *app) locate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("locate", flag.ExitOnError)
	locator := fs.String("cmd", envOr("LOCATE_CMD", ""), "command printing {\"lat\":..,\"lng\":..} on stdout")
	lat := fs.Float64("lat", 0, "manual latitude, skips the locator")
	lng := fs.Float64("lng", 0, "manual longitude, skips the locator")
	fs.Parse(args)

	session := view.NewSession(a.boundary)

	if *lat != 0 || *lng != 0 {
		if err := session.SetPosition(*lat, *lng); err != nil {
			return err
		}
		fmt.Printf("position %.4f,%.4f is inside the covered region\n", *lat, *lng)
		return nil
	}

	if *locator == "" {
		return fmt.Errorf("locate: no locator command; set -cmd or LOCATE_CMD, or pass -lat/-lng")
	}

	parts := strings.Fields(*locator)
	source := &geoloc.ExecSource{Command: parts[0], Args: parts[1:]}
	resolver := geoloc.NewResolver(source, a.boundary)

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	session.TrackLocate(cancel)

	pos, err := resolver.Acquire(opCtx)
	if err != nil {
		log.Printf("[Client] Position acquisition failed (%v)", resolver.State())
		return fmt.Errorf("%w; pass -lat/-lng to set the position manually", err)
	}

	if err := session.SetPosition(pos.Lat, pos.Lng); err != nil {
		return err
	}
	fmt.Printf("%.6f,%.6f (accuracy %.0fm)\n", pos.Lat, pos.Lng, pos.Accuracy)
	return nil
}

func (a *app) sync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	limit := fs.Int("limit", 0, "number of entries to pull, server default if 0")
	fs.Parse(args)

	entries, err := a.api.List(ctx, *limit)
	if err != nil {
		return err
	}
	imported, err := a.store.Import(entries)
	if err != nil {
		return err
	}
	log.Printf("[Client] Pulled %d entries, %d new", len(entries), imported)
	return nil
}

func printRow(e *models.Contribution) {
	date := ""
	if e.Date != nil {
		date = *e.Date
	} else if e.CreatedAt != 0 {
		date = utils.FormatMillis(e.CreatedAt)
	}
	edited := ""
	if e.Edited() {
		edited = " (edited)"
	}
	fmt.Printf("%-28s %-20s %-14s x%-4d %.4f,%.4f %s%s\n",
		e.ID, e.Nom, e.Type, e.Quantite, e.Lat, e.Lng, date, edited)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".greenalgeria"
	}
	return filepath.Join(home, ".greenalgeria")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
