// Command devuser mirrors an identity provider user into the database and
// prints a signed access token for it, for local development against the
// drivekeeper server.
//
// Usage:
//
//	devuser -tid user_123 -orgs org_a,org_b -name "Jane" [-c server.yaml]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/drivekeeper/internal/flagx"
	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/dmitrijs2005/drivekeeper/internal/server/access"
	"github.com/dmitrijs2005/drivekeeper/internal/server/auth"
	"github.com/dmitrijs2005/drivekeeper/internal/server/config"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/drivekeeper/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var tid, orgs, name, image string

	fs := flag.NewFlagSet("devuser", flag.ExitOnError)
	fs.StringVar(&tid, "tid", "", "token identifier (required)")
	fs.StringVar(&orgs, "orgs", "", "comma-separated organization ids")
	fs.StringVar(&name, "name", "", "display name")
	fs.StringVar(&image, "image", "", "avatar url")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-tid", "-orgs", "-name", "-image"}))

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("%v", err)
	}

	us := services.NewUserService(db, rm, access.NewGuard(db, rm, logging.Nop()))
	u, err := us.SyncUser(ctx, tid, splitOrgs(orgs), name, image)
	if err != nil {
		log.Fatalf("%v", err)
	}

	token, err := auth.GenerateToken(u.TokenIdentifier, []byte(cfg.SecretKey), cfg.AccessTokenValidity)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("user_id=%s\n", u.ID)
	fmt.Println(token)
}

func splitOrgs(s string) []string {
	out := []string{}
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
