// Development seed: wipes the database and creates demo accounts plus a few
// bookings spread across the lifecycle.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"jaladhar/internal/database"
	"jaladhar/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "jaladhar.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed:", err)
	}

	// Cleanup old data (children first to keep FKs happy)
	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM payment_audits")
	db.Exec("DELETE FROM reports")
	db.Exec("DELETE FROM bookings")
	db.Exec("DELETE FROM users")

	// ================== USERS ==================
	log.Println("Creating users...")

	adminHash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := domain.User{
		Email:        "admin@jaladhar.in",
		PasswordHash: string(adminHash),
		Role:         domain.RoleAdmin,
		Name:         "Admin",
	}
	db.Create(&admin)
	log.Println("Admin created: admin@jaladhar.in / admin123")

	users := []domain.User{}
	userEmails := []string{"ravi@gmail.com", "meena@gmail.com", "suresh@gmail.com"}
	for i, email := range userEmails {
		hash, _ := bcrypt.GenerateFromPassword([]byte("user1234"), bcrypt.DefaultCost)
		u := domain.User{
			Email:        email,
			PasswordHash: string(hash),
			Role:         domain.RoleUser,
			Name:         fmt.Sprintf("User %d", i+1),
			Phone:        fmt.Sprintf("+91 98765 432%02d", i+10),
		}
		db.Create(&u)
		users = append(users, u)
	}

	vendors := []domain.User{}
	vendorEmails := []string{"surveyor1@jaladhar.in", "surveyor2@jaladhar.in"}
	for i, email := range vendorEmails {
		hash, _ := bcrypt.GenerateFromPassword([]byte("vendor123"), bcrypt.DefaultCost)
		v := domain.User{
			Email:        email,
			PasswordHash: string(hash),
			Role:         domain.RoleVendor,
			Name:         fmt.Sprintf("Surveyor %d", i+1),
			Phone:        fmt.Sprintf("+91 99887 766%02d", i+55),
		}
		db.Create(&v)
		vendors = append(vendors, v)
	}

	// ================== BOOKINGS ==================
	log.Println("Creating bookings...")

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	// One pending booking waiting for its advance payment.
	pending := domain.Booking{
		UserID:        users[0].ID,
		VendorID:      vendors[0].ID,
		ServiceID:     1,
		Status:        domain.BookingPending,
		ScheduledDate: tomorrow,
		ScheduledTime: "10:00",
		Address:       "12 Gandhi Road, Madurai",
		Latitude:      9.9252,
		Longitude:     78.1198,
		Payment:       domain.NewPayment(600000, 50000, 117000),
	}
	db.Create(&pending)

	// One booking mid-lifecycle: advance paid, vendor accepted.
	accepted := domain.Booking{
		UserID:        users[1].ID,
		VendorID:      vendors[0].ID,
		ServiceID:     1,
		Status:        domain.BookingAccepted,
		ScheduledDate: tomorrow,
		ScheduledTime: "14:30",
		Address:       "48 Anna Nagar, Chennai",
		Latitude:      13.0827,
		Longitude:     80.2707,
		Payment:       domain.NewPayment(600000, 50000, 117000),
	}
	accepted.Payment.AdvancePaid = true
	accepted.Payment.AdvanceGatewayOrderID = "order_seed_adv_1"
	accepted.Payment.AdvanceGatewayPaymentID = "pay_seed_adv_1"
	db.Create(&accepted)

	// One completed booking with an unlocked report.
	completed := domain.Booking{
		UserID:        users[2].ID,
		VendorID:      vendors[1].ID,
		ServiceID:     1,
		Status:        domain.BookingCompleted,
		ScheduledDate: time.Now().AddDate(0, 0, -7).Format("2006-01-02"),
		ScheduledTime: "09:00",
		Address:       "7 MG Road, Coimbatore",
		Latitude:      11.0168,
		Longitude:     76.9558,
		Payment:       domain.NewPayment(600000, 50000, 117000),
	}
	completed.Payment.AdvancePaid = true
	completed.Payment.RemainingPaid = true
	completed.Payment.AdvanceGatewayOrderID = "order_seed_adv_2"
	completed.Payment.AdvanceGatewayPaymentID = "pay_seed_adv_2"
	completed.Payment.RemainingGatewayOrderID = "order_seed_rem_2"
	completed.Payment.RemainingGatewayPaymentID = "pay_seed_rem_2"
	db.Create(&completed)

	report := domain.Report{
		BookingID:      completed.ID,
		WaterFound:     true,
		DepthMeters:    42.5,
		Findings:       "Strong aquifer indication at the north corner of the plot.",
		Recommendation: "Bore at the marked point; expected yield is adequate for domestic use.",
	}
	db.Create(&report)

	log.Println("Seed completed.")
	log.Printf("Users: %s / user1234", userEmails[0])
	log.Printf("Vendors: %s / vendor123", vendorEmails[0])
}
