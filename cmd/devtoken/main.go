package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/noah-isme/mathfacts-api/internal/models"
	"github.com/noah-isme/mathfacts-api/internal/service"
	"github.com/noah-isme/mathfacts-api/pkg/config"
)

// devtoken prints an access token signed with the configured JWT secret so
// the API can be exercised locally without the identity provider.
func main() {
	var (
		userID   string
		role     string
		fullName string
		ttl      time.Duration
	)

	flag.StringVar(&userID, "user", "", "Student or teacher ID (required)")
	flag.StringVar(&role, "role", string(models.RoleStudent), "Role: STUDENT, TEACHER or ADMIN")
	flag.StringVar(&fullName, "name", "", "Display name")
	flag.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if userID == "" {
		log.Fatal("-user is required")
	}
	userRole := models.UserRole(strings.ToUpper(role))
	switch userRole {
	case models.RoleStudent, models.RoleTeacher, models.RoleAdmin:
	default:
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Env == config.EnvProduction {
		log.Fatal("refusing to mint tokens in production")
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      ttl,
	})
	token, err := tokens.Issue(userID, userRole, fullName, time.Now())
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}
