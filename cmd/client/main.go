// Command client is a small command-line client for the drivekeeper server.
//
// Usage:
//
//	client [-a addr] [-t token] <command> [args]
//
// Commands:
//
//	ping
//	upload <org> <path>
//	ls <org> [query]        files not in the trash
//	trash-ls <org> [query]  files in the trash
//	fav-ls <org> [query]    favorite files not in the trash
//	trash <file-id>
//	restore <file-id>
//	fav <file-id>
//	favs <org>
//	url <file-id>
//	profile <user-id>
//
// The token may also be given with DRIVEKEEPER_TOKEN.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/client"
)

func main() {
	addr := flag.String("a", "localhost:50051", "server address")
	token := flag.String("t", os.Getenv("DRIVEKEEPER_TOKEN"), "access token")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c, err := client.NewGRPCClient(*addr, *token)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, c, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func run(ctx context.Context, c *client.GRPCClient, cmd string, args []string) error {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch cmd {
	case "ping":
		if err := c.Ping(ctx); err != nil {
			return err
		}
		fmt.Println("OK")

	case "upload":
		body, err := os.ReadFile(arg(1))
		if err != nil {
			return err
		}
		id, err := c.Upload(ctx, arg(0), filepath.Base(arg(1)), client.FileTypeForPath(arg(1)), body)
		if err != nil {
			return err
		}
		fmt.Println(id)

	case "ls", "trash-ls", "fav-ls":
		files, err := c.ListFiles(ctx, arg(0), arg(1), cmd == "fav-ls", cmd == "trash-ls")
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("%s\t%s\t%s\t%s\n", f.ID, f.Type, f.CreatedAt.Local().Format(time.DateTime), f.Name)
		}

	case "trash":
		return c.Trash(ctx, arg(0))

	case "restore":
		return c.Restore(ctx, arg(0))

	case "fav":
		on, err := c.ToggleFavorite(ctx, arg(0))
		if err != nil {
			return err
		}
		fmt.Println(on)

	case "favs":
		favs, err := c.ListFavorites(ctx, arg(0))
		if err != nil {
			return err
		}
		for _, f := range favs {
			fmt.Println(f.FileID)
		}

	case "url":
		u, err := c.FileURL(ctx, arg(0))
		if err != nil {
			return err
		}
		fmt.Println(u)

	case "profile":
		name, image, err := c.UserProfile(ctx, arg(0))
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", name, image)

	default:
		return fmt.Errorf("unknown command")
	}
	return nil
}
