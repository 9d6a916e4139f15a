package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"foodrescue/internal/api"
	"foodrescue/internal/config"
	"foodrescue/internal/filter"
	"foodrescue/internal/model"
	"foodrescue/internal/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage()
		return nil
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)

	store := session.NewFileStore(cfg.Session.Path)
	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return runRegister(ctx, client, rest)
	case "login":
		return runLogin(ctx, client, rest)
	case "logout":
		return runLogout(client)
	case "whoami":
		return runWhoami(store)
	case "browse":
		return runBrowse(ctx, client, rest)
	case "my":
		return runMy(ctx, client)
	case "add":
		return runAdd(ctx, client, rest)
	case "update":
		return runUpdate(ctx, client, rest)
	case "delete":
		return runDelete(ctx, client, rest)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `foodrescue - surplus food marketplace client

Usage:
  foodrescue <command> [flags]

Account commands:
  register  -username <u> -password <p> [-role buyer|seller]
  login     -username <u> -password <p>
  logout
  whoami

Buyer commands:
  browse    [-status all|available|unavailable] [-price all|<50|50-100|>100] [-query <text>]

Seller commands:
  my
  add       -name <n> -price <p> [-quantity <q>] [-place <p>] [-description <d>]
            [-lng <x> -lat <y>] [-image <file>]
  update    <id> [same flags as add] [-status available|unavailable]
  delete    <id>

Configuration comes from the environment or a .env file:
  API_BASE_URL, HTTP_TIMEOUT_SECONDS, SESSION_FILE, LOG_LEVEL, LOG_FORMAT
`)
}

func runRegister(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "account password")
	role := fs.String("role", string(model.RoleBuyer), "buyer or seller")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("username and password are required")
	}

	user, err := client.Register(ctx, *username, *password, model.Role(*role))
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s as %s. You can now log in.\n", user.Username, user.Role)
	return nil
}

func runLogin(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("username and password are required")
	}

	res, err := client.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome %s (%s)\n", res.User.Username, res.User.Role)
	if res.User.Role == model.RoleSeller {
		fmt.Println("Use 'my', 'add', 'update' and 'delete' to manage your listings.")
	} else {
		fmt.Println("Use 'browse' to see available food near you.")
	}
	return nil
}

func runLogout(client *api.Client) error {
	if err := client.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func runWhoami(store session.Store) error {
	role, err := store.Role()
	if errors.Is(err, session.ErrNoSession) {
		fmt.Println("Not signed in.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s.\n", role)
	return nil
}

func runBrowse(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	status := fs.String("status", filter.StatusAll, "all, available or unavailable")
	price := fs.String("price", filter.PriceAll, "all, <50, 50-100 or >100")
	query := fs.String("query", "", "text matched against name and place")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !filter.ValidPriceBand(*price) {
		return fmt.Errorf("unknown price band %q", *price)
	}

	foods, err := client.AvailableFoods(ctx)
	if err != nil {
		return err
	}

	state := filter.State{Status: *status, Price: *price, Query: *query}
	visible := state.Apply(foods)
	if len(visible) == 0 {
		fmt.Println("No food found.")
		return nil
	}
	printListings(visible)
	return nil
}

func runMy(ctx context.Context, client *api.Client) error {
	foods, err := client.MyFoods(ctx)
	if err != nil {
		return err
	}
	if len(foods) == 0 {
		fmt.Println("You have no listings yet.")
		return nil
	}
	printListings(foods)
	return nil
}

func runAdd(ctx context.Context, client *api.Client, args []string) error {
	lf := listingFlagSet("add")
	if err := lf.fs.Parse(args); err != nil {
		return err
	}
	fields, err := lf.fields()
	if err != nil {
		return err
	}
	if fields.Name == nil || fields.Price == nil {
		return errors.New("name and price are required")
	}

	created, err := client.CreateFood(ctx, fields)
	if err != nil {
		return err
	}
	fmt.Printf("Added %q (id %s)\n", created.Name, created.ID)
	return nil
}

func runUpdate(ctx context.Context, client *api.Client, args []string) error {
	if len(args) == 0 {
		return errors.New("update requires a listing id")
	}
	id := args[0]

	lf := listingFlagSet("update")
	if err := lf.fs.Parse(args[1:]); err != nil {
		return err
	}
	fields, err := lf.fields()
	if err != nil {
		return err
	}

	updated, err := client.UpdateFood(ctx, id, fields)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %q (id %s)\n", updated.Name, updated.ID)
	return nil
}

func runDelete(ctx context.Context, client *api.Client, args []string) error {
	if len(args) == 0 {
		return errors.New("delete requires a listing id")
	}
	id := args[0]

	if err := client.DeleteFood(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted listing %s\n", id)
	return nil
}

// listingFlags collects the shared add/update flags and remembers
// which ones were actually set, so updates stay partial.
type listingFlags struct {
	fs *flag.FlagSet

	name        string
	price       string
	quantity    int
	status      string
	place       string
	description string
	lng         float64
	lat         float64
	image       string
}

func listingFlagSet(name string) *listingFlags {
	lf := &listingFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	lf.fs.StringVar(&lf.name, "name", "", "listing name")
	lf.fs.StringVar(&lf.price, "price", "", "price")
	lf.fs.IntVar(&lf.quantity, "quantity", 0, "quantity on offer")
	lf.fs.StringVar(&lf.status, "status", "", "available or unavailable")
	lf.fs.StringVar(&lf.place, "place", "", "pickup place name")
	lf.fs.StringVar(&lf.description, "description", "", "free-form description")
	lf.fs.Float64Var(&lf.lng, "lng", 0, "pickup longitude")
	lf.fs.Float64Var(&lf.lat, "lat", 0, "pickup latitude")
	lf.fs.StringVar(&lf.image, "image", "", "path to a photo file")
	return lf
}

// fields turns the set flags into a partial payload. Unset flags are
// simply absent from the request body.
func (lf *listingFlags) fields() (model.FoodFields, error) {
	set := make(map[string]bool)
	lf.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var fields model.FoodFields
	if set["name"] {
		fields.Name = &lf.name
	}
	if set["price"] {
		p := model.Price(lf.price)
		fields.Price = &p
	}
	if set["quantity"] {
		if lf.quantity < 0 {
			return fields, errors.New("quantity must not be negative")
		}
		fields.Quantity = &lf.quantity
	}
	if set["status"] {
		st := model.Status(lf.status)
		if st != model.StatusAvailable && st != model.StatusUnavailable {
			return fields, fmt.Errorf("unknown status %q", lf.status)
		}
		fields.Status = &st
	}
	if set["place"] {
		fields.PlaceName = &lf.place
	}
	if set["description"] {
		fields.Description = &lf.description
	}
	if set["lng"] != set["lat"] {
		return fields, errors.New("lng and lat must be supplied together")
	}
	if set["lng"] {
		fields.Location = model.NewPoint(lf.lng, lf.lat)
	}
	if set["image"] {
		b64, contentType, err := loadImage(lf.image)
		if err != nil {
			return fields, err
		}
		fields.ImageBase64 = &b64
		fields.ImageContentType = &contentType
	}
	return fields, nil
}

// loadImage reads a photo file and returns its base64 payload plus
// the sniffed content type.
func loadImage(path string) (string, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read image file: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), http.DetectContentType(b), nil
}

func printListings(foods []model.FoodListing) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tQTY\tSTATUS\tPLACE\tSELLER\tMAP")
	for _, f := range foods {
		seller := "-"
		if f.Owner != nil && f.Owner.Username != "" {
			seller = f.Owner.Username
		}
		place := f.PlaceName
		if place == "" {
			place = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			f.ID, f.Name, f.Price, f.Quantity, f.Status, place, seller, mapsURL(f.Location))
	}
	tw.Flush()
}

// mapsURL builds the same Google Maps search link the mobile app
// opened for a listing's pin.
func mapsURL(loc *model.Location) string {
	if loc == nil || len(loc.Coordinates) < 2 {
		return "-"
	}
	lng, lat := loc.Coordinates[0], loc.Coordinates[1]
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%v,%v", lat, lng)
}
