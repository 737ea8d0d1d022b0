// Command client is a terminal client for the marketplace API. It keeps the
// session in a local file so authentication survives restarts, and the
// watch command runs the polling sync loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"bazaar/internal/client"
	"bazaar/internal/config"
	"bazaar/internal/listings"
	"bazaar/internal/logger"
)

func main() {
	logger.SetDefault(logger.New("marketplace-client"))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	api := client.New(config.GetEnvOrDefault("BAZAAR_API_URL", "http://localhost:8080"))
	cache, err := client.DefaultSessionCache()
	if err != nil {
		fatal("failed to locate session cache: %v", err)
	}
	session := client.NewSession(api, cache)
	if err := session.Init(); err != nil {
		fatal("failed to restore session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "register":
		runRegister(ctx, session)
	case "login":
		runLogin(ctx, session)
	case "logout":
		if err := session.Logout(ctx); err != nil {
			fatal("logout failed: %v", err)
		}
		fmt.Println("logged out")
	case "listings":
		runListings(ctx, api)
	case "create":
		runCreate(ctx, api, session)
	case "update":
		runUpdate(ctx, api, session)
	case "delete":
		runDelete(ctx, api, session)
	case "watch":
		runWatch(ctx, api)
	default:
		usage()
		os.Exit(2)
	}
}

func runRegister(ctx context.Context, session *client.Session) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (min 8 characters)")
	fs.Parse(os.Args[2:])

	if err := session.Register(ctx, *name, *email, *password); err != nil {
		fatal("registration failed: %v", err)
	}
	fmt.Printf("registered as %s\n", session.User().Email)
}

func runLogin(ctx context.Context, session *client.Session) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(os.Args[2:])

	if err := session.Login(ctx, *email, *password); err != nil {
		fatal("login failed: %v", err)
	}
	fmt.Printf("logged in as %s\n", *email)
}

func runListings(ctx context.Context, api *client.Client) {
	fs := flag.NewFlagSet("listings", flag.ExitOnError)
	page := fs.Int("page", 1, "page number")
	fs.Parse(os.Args[2:])

	resp, err := api.Listings(ctx, *page)
	if err != nil {
		fatal("failed to fetch listings: %v", err)
	}
	printPage(resp)
}

func runCreate(ctx context.Context, api *client.Client, session *client.Session) {
	requireAuth(session)

	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "listing title")
	description := fs.String("description", "", "description")
	location := fs.String("location", "", "location")
	price := fs.Float64("price", 0, "price")
	category := fs.String("category", "", "category")
	fs.Parse(os.Args[2:])

	listing, err := api.CreateListing(ctx, listings.CreateListingRequest{
		Title:       *title,
		Description: *description,
		Location:    *location,
		Price:       price,
		Category:    *category,
	})
	if err != nil {
		fatal("failed to create listing: %v", err)
	}
	fmt.Printf("created listing %d: %s\n", listing.ID, listing.Title)
}

func runUpdate(ctx context.Context, api *client.Client, session *client.Session) {
	requireAuth(session)

	fs := flag.NewFlagSet("update", flag.ExitOnError)
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	location := fs.String("location", "", "new location")
	price := fs.String("price", "", "new price")
	category := fs.String("category", "", "new category")
	fs.Parse(os.Args[2:])

	id := parseID(fs.Arg(0))

	// Only flags the user actually set become part of the partial update
	var req listings.UpdateListingRequest
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			req.Title = title
		case "description":
			req.Description = description
		case "location":
			req.Location = location
		case "price":
			parsed, err := strconv.ParseFloat(*price, 64)
			if err != nil {
				fatal("invalid price: %v", err)
			}
			req.Price = &parsed
		case "category":
			req.Category = category
		}
	})

	listing, err := api.UpdateListing(ctx, id, req)
	if err != nil {
		fatal("failed to update listing: %v", err)
	}
	fmt.Printf("updated listing %d: %s\n", listing.ID, listing.Title)
}

func runDelete(ctx context.Context, api *client.Client, session *client.Session) {
	requireAuth(session)

	if len(os.Args) < 3 {
		fatal("usage: client delete <id>")
	}
	id := parseID(os.Args[2])

	if err := api.DeleteListing(ctx, id); err != nil {
		fatal("failed to delete listing: %v", err)
	}
	fmt.Printf("deleted listing %d\n", id)
}

func runWatch(ctx context.Context, api *client.Client) {
	syncer := client.NewSyncer(api, client.DefaultSyncInterval, func(items []listings.Listing) {
		fmt.Printf("--- %d listings ---\n", len(items))
		for _, l := range items {
			fmt.Printf("%6d  %-30s  %10.2f  %s\n", l.ID, l.Title, l.Price, l.Location)
		}
	})

	fmt.Println("watching listings, Ctrl+C to stop")
	syncer.Run(ctx)
}

func printPage(page *listings.ListingsPage) {
	fmt.Printf("page %d of %d listings\n", page.Meta.Page, page.Meta.Total)
	for _, l := range page.Data {
		fmt.Printf("%6d  %-30s  %10.2f  %s  [%s]\n", l.ID, l.Title, l.Price, l.Location, l.Category)
	}
}

func requireAuth(session *client.Session) {
	if !session.Authenticated() {
		fatal("not logged in: run 'client login' or 'client register' first")
	}
}

func parseID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fatal("invalid listing id %q", arg)
	}
	return id
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: client <command> [flags]

commands:
  register   -name -email -password     create an account
  login      -email -password           authenticate
  logout                                revoke the token and clear the session
  listings   [-page N]                  browse listings
  create     -title -location -price -category [-description]
  update     [flags] <id>               partial update of an owned listing
  delete     <id>                       delete an owned listing
  watch                                 poll and print the listing collection`)
}
