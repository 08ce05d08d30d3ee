package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gorm.io/gorm"

	"spendwise/internal/config"
	"spendwise/internal/db"
	"spendwise/internal/model"
	"spendwise/internal/repository"
	"spendwise/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	driver := fs.String("driver", cfg.DBDriver, "Database driver (mysql, postgres, sqlite)")
	dsn := fs.String("dsn", cfg.DBDSN, "Database DSN")
	email := fs.String("email", "", "Create a user with this email (optional)")
	username := fs.String("user", "", "Username for the created user (defaults to the email's local part)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	gormDB, err := db.Open(*driver, *dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	ctx := context.Background()
	inserted, err := service.NewCategoryService(repository.NewCategoryRepository(gormDB)).SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if inserted > 0 {
		fmt.Fprintf(stdout, "Seeded %d default categories\n", inserted)
	} else {
		fmt.Fprintln(stdout, "Default categories already present")
	}

	if *email == "" {
		return nil
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}

	user, err := createUser(ctx, repository.NewUserRepository(gormDB), *username, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", user.Email, user.ID)
	return nil
}

func createUser(ctx context.Context, users repository.UserRepository, username, email, password string) (*model.User, error) {
	email = service.NormalizeEmail(email)
	if !service.ValidateEmail(email) {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if username = strings.TrimSpace(username); username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	if existing, err := users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("user %s already exists", email)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:           username,
		Email:              email,
		PasswordHash:       hash,
		EmailNotifications: true,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal input (tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
