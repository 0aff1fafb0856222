package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"protocol-review-api/config"
	"protocol-review-api/models"
	"protocol-review-api/store"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// defaultPreferences are merged into each user's settings document, so
// re-running the command never clobbers values a user already changed.
var defaultPreferences = map[string]any{
	"emailOnAssignment": true,
	"emailOnDecision":   true,
	"listPageSize":      20,
	"locale":            "en",
}

func main() {
	log.Println("Starting targeted user settings provisioning...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to environment variables")
	}

	config.InitDB()

	recordStore, err := store.NewGormStore(config.DB)
	if err != nil {
		log.Fatalf("failed to initialize record store: %v", err)
	}

	targetUserIDs, err := resolveTargetUserIDs(os.Args[1:], os.Getenv("PROVISION_USER_IDS"))
	if err != nil {
		log.Fatalf("invalid user id list: %v", err)
	}
	if len(targetUserIDs) == 0 {
		log.Fatal("No user ids given. Pass them as arguments (provision-user-settings 1 2 3) or set PROVISION_USER_IDS=1,2,3")
	}

	ctx := context.Background()

	var (
		succeeded int
		failed    []string
	)

	for _, targetUserID := range targetUserIDs {
		log.Printf("Provisioning user_id=%d", targetUserID)

		var user models.User
		if err := config.DB.First(&user, "user_id = ?", targetUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("no user found with user_id %d", targetUserID)
				failed = append(failed, formatFailureLabel(targetUserID, "record not found"))
			} else {
				log.Printf("failed to query user_id %d: %v", targetUserID, err)
				failed = append(failed, formatFailureLabel(targetUserID, err.Error()))
			}
			continue
		}

		path := store.SettingsPath(user.StoreID(), "preferences")
		rec, err := recordStore.Write(ctx, path, defaultPreferences, store.Merge)
		if err != nil {
			log.Printf("failed to write settings for user_id %d: %v", targetUserID, err)
			failed = append(failed, formatFailureLabel(targetUserID, err.Error()))
			continue
		}

		if rec.Rev > 1 {
			log.Printf("Settings already existed for %s, merged defaults at rev %d", user.FullName(), rec.Rev)
		} else {
			log.Printf("Settings created for %s at %s", user.FullName(), path)
		}
		succeeded++
	}

	if len(failed) > 0 {
		log.Fatalf("completed with errors. successful: %d, failed: %s", succeeded, strings.Join(failed, ", "))
	}

	log.Printf("Successfully provisioned %d user(s)", succeeded)
}

func formatFailureLabel(userID int, reason string) string {
	return "user_id=" + strconv.Itoa(userID) + " (" + reason + ")"
}

// resolveTargetUserIDs reads the user_id list from the command line, or from
// the PROVISION_USER_IDS env var (comma-separated) when no arguments were
// given. Duplicates are dropped.
func resolveTargetUserIDs(args []string, envList string) ([]int, error) {
	raw := args
	if len(raw) == 0 && envList != "" {
		raw = strings.Split(envList, ",")
	}

	var (
		ids  []int
		seen = map[int]bool{}
	)
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, err := strconv.Atoi(token)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not a valid user_id", token)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
