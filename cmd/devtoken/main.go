// Command devtoken prepares a local environment: it optionally creates an
// organization with a membership for the user, records global roles, and
// prints an identity token signed with JWT_SECRET.
//
//	devtoken -user 7 -roles teacher -org "Riverside Academy" -org-role owner
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/live-classroom/internal/config"
	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/repository"
	"github.com/iliyamo/live-classroom/internal/utils"
)

func main() {
	userID := flag.Uint64("user", 0, "user id to mint the token for")
	roles := flag.String("roles", "", "comma separated global roles carried by the token and stored for the user")
	staff := flag.Bool("staff", false, "set the is_staff claim")
	superuser := flag.Bool("superuser", false, "set the is_superuser claim")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	orgName := flag.String("org", "", "create an organization with this name and add the user to it")
	orgRole := flag.String("org-role", string(model.OrgRoleOwner), "role of the user in the created organization")
	flag.Parse()

	if *userID == 0 {
		log.Fatal("-user is required")
	}
	_ = godotenv.Load()
	cfg := config.Load()

	p := model.Principal{UserID: *userID, IsStaff: *staff, IsSuperuser: *superuser}
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			p.Roles = append(p.Roles, model.RoleSlug(r))
		}
	}

	if *orgName != "" || len(p.Roles) > 0 {
		if err := seed(cfg, p, *orgName, model.OrgRole(*orgRole)); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	tok, err := utils.NewAccessToken(cfg.JWTSecret, p, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	log.Printf("expires %s", tok.Exp.Format(time.RFC3339))
}

func seed(cfg config.Config, p model.Principal, orgName string, role model.OrgRole) error {
	var (
		db  *database.DB
		err error
	)
	if cfg.DBDriver == "sqlite" {
		db, err = database.OpenSQLite(cfg.SQLiteDSN)
	} else {
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	orgs := repository.NewOrgRepo(db)

	for _, r := range p.Roles {
		if err := orgs.AddRole(ctx, p.UserID, r); err != nil {
			return fmt.Errorf("add role %s: %w", r, err)
		}
	}
	if orgName == "" {
		return nil
	}
	if !model.ValidOrgRole(role) {
		return fmt.Errorf("unknown org role %q", role)
	}
	org := &model.Organization{Name: orgName, Slug: utils.Slugify(orgName), OwnerID: p.UserID}
	if err := orgs.Create(ctx, org); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("organization slug %q already exists", org.Slug)
		}
		return err
	}
	if err := orgs.AddMember(ctx, org.ID, p.UserID, role); err != nil {
		return err
	}
	log.Printf("organization %d (%s): user %d is %s; send X-Org-ID: %d", org.ID, org.Slug, p.UserID, role, org.ID)
	return nil
}
