package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gorm.io/gorm"

	"lessin/internal/auth"
	"lessin/internal/config"
	"lessin/internal/database"
	"lessin/internal/observability"
	"lessin/internal/storage"
	"lessin/internal/tasks"
)

const usage = `usage:
  admin create-user --username NAME [--email EMAIL]
  admin delete-user --id ID`

var errUsage = errors.New(usage)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.MustLoad()
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}

	a := &admin{
		db:     db,
		purger: tasks.NewInlinePurger(store, observability.NewLogger(cfg.Log, os.Stderr)),
		out:    os.Stdout,
	}
	if err := a.run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

// admin 持有子命令共用的依赖，便于在测试中替换。
type admin struct {
	db     *gorm.DB
	purger tasks.Purger
	out    io.Writer
}

func (a *admin) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "create-user":
		return a.createUser(ctx, args[1:])
	case "delete-user":
		return a.deleteUser(ctx, args[1:])
	default:
		return errUsage
	}
}

func (a *admin) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *admin) createUser(ctx context.Context, args []string) error {
	fs := a.flagSet("create-user")
	username := fs.String("username", "", "用户名（必填）")
	email := fs.String("email", "", "邮箱（可选）")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("create-user: %w", err)
	}

	u := strings.TrimSpace(*username)
	if u == "" {
		return errors.New("missing required flag: --username")
	}

	db := a.db.WithContext(ctx)
	var existing database.User
	switch err := db.Where("username = ?", u).First(&existing).Error; {
	case err == nil:
		return fmt.Errorf("user %q already exists", u)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query user: %w", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := database.User{Username: u, Email: strings.TrimSpace(*email), PasswordHash: hashed}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(a.out, "已创建账号 (id=%d)\n", user.ID)
	fmt.Fprintf(a.out, "用户名: %s\n", u)
	fmt.Fprintf(a.out, "初始密码: %s\n", password)
	fmt.Fprintln(a.out, "提示：该密码仅显示一次。")
	return nil
}

// deleteUser 级联删除用户数据，再把遗留的存储 key 交给 purger 清理。
func (a *admin) deleteUser(ctx context.Context, args []string) error {
	fs := a.flagSet("delete-user")
	id := fs.Uint("id", 0, "用户 ID（必填）")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("delete-user: %w", err)
	}

	if *id == 0 {
		return errors.New("missing required flag: --id")
	}

	keys, err := database.DeleteUser(ctx, a.db, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d not found", *id)
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if err := a.purger.Purge(ctx, keys, "admin-delete-user"); err != nil {
		fmt.Fprintf(a.out, "用户已删除，但部分文件清理失败: %v\n", err)
		return nil
	}

	fmt.Fprintf(a.out, "已删除用户 %d，清理文件 %d 个\n", *id, len(keys))
	return nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
