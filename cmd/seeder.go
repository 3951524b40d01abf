package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a first store and admin account for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpg.New(gormpg.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"audit_logs", "notes", "news_posts", "pending_notifications",
				"requests", "tasks", "shifts", "users", "stores",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		storeCode := "CENTER"
		var exists int
		row := db.Raw("SELECT 1 FROM stores WHERE code = ?", storeCode).Row()
		if err := row.Scan(&exists); err != nil {
			if err := db.Exec(
				"INSERT INTO stores (name, code, type, report_time, open_time, close_time, break_minutes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, now(), now())",
				"Центральний", storeCode, "flagship", "21:00", "09:00", "21:00", 60).Error; err != nil {
				log.Fatalf("failed to insert store: %v", err)
			}
			fmt.Println("Seeded store:", storeCode)
		} else {
			fmt.Println("store already exists:", storeCode)
		}

		var storeID int64
		if err := db.Raw("SELECT id FROM stores WHERE code = ?", storeCode).Row().Scan(&storeID); err != nil {
			log.Fatalf("failed to lookup store id: %v", err)
		}

		password := "admin123"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			Username string
			Name     string
			Role     string
			StoreID  *int64
		}{
			{"admin", "Адмін", "admin", nil},
			{"manager", "Олена", "SM", &storeID},
			{"senior", "Андрій", "SSE", &storeID},
			{"employee", "Марія", "SE", &storeID},
		}

		for _, u := range users {
			row := db.Raw("SELECT 1 FROM users WHERE username = ?", u.Username).Row()
			if err := row.Scan(&exists); err == nil {
				fmt.Println("user already exists:", u.Username)
				continue
			}
			if err := db.Exec(
				"INSERT INTO users (username, password_hash, name, role, status, grade, reminder_pref, store_id, created_at, updated_at) VALUES (?, ?, ?, ?, 'active', 1, '20:00', ?, now(), now())",
				u.Username, string(hash), u.Name, u.Role, u.StoreID).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Username, err)
			}
			fmt.Println("Seeded user:", u.Username)
		}

		fmt.Println("Seeding finished. Default password:", password)
	},
}
