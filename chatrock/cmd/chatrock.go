// Terminal client for a running chatrock server
package main

import (
	"bufio"
	"chatrock/chatrock/client"
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/utils/color"
	"chatrock/chatrock/utils/logging"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	logging.InitLogger(getEnv("LOG_DIR", "./logs"))
	defer logging.Sync()

	baseURL := getEnv("CHATROCK_URL", "http://localhost:8000")
	email := os.Getenv("CHATROCK_EMAIL")
	password := os.Getenv("CHATROCK_PASSWORD")
	if email == "" || password == "" {
		fmt.Println(color.ColorError("CHATROCK_EMAIL and CHATROCK_PASSWORD must be set"))
		os.Exit(1)
	}

	sess, err := client.NewSession(baseURL, getEnv("CHATROCK_MODEL", catalog.DefaultModelID))
	if err != nil {
		fmt.Println(color.ColorError(err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if _, err := sess.Login(ctx, email, password); err != nil {
		if args := os.Args[1:]; len(args) > 0 && args[0] == "register" {
			_, err = sess.Register(ctx, email, password)
		}
		if err != nil {
			cancel()
			logging.ErrorLogger.Error("CLI sign-in failed", zap.String("url", baseURL), zap.Error(err))
			fmt.Println(color.ColorError("sign-in failed: " + err.Error()))
			os.Exit(1)
		}
	}
	cancel()

	fmt.Println(color.ColorInfo("Connected to " + baseURL + " as " + email))
	fmt.Println(color.ColorFaint("Commands: /new  /history  /open <chat-id>  /models  /model <id>  /delete  exit"))
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(color.ColorPrompt("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			runCommand(sess, line)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		reply, err := sess.Submit(ctx, line)
		cancel()
		if err != nil {
			fmt.Println(color.ColorError("error: " + err.Error()))
			continue
		}
		fmt.Println(color.ColorAssistant(reply.Content.PlainText()))
		fmt.Println()
	}
}

func runCommand(sess *client.Session, line string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fields := strings.Fields(line)
	switch fields[0] {
	case "/new":
		sess.NewChat()
		fmt.Println(color.ColorInfo("new chat " + sess.ChatID.String()))
	case "/history":
		chats, err := sess.History(ctx)
		if err != nil {
			fmt.Println(color.ColorError(err.Error()))
			return
		}
		for _, c := range chats {
			fmt.Printf("%s  %s  %s\n", color.ColorFaint(c.ID.String()), c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Title)
		}
	case "/open":
		if len(fields) != 2 {
			fmt.Println(color.ColorWarning("usage: /open <chat-id>"))
			return
		}
		id, err := uuid.Parse(fields[1])
		if err != nil {
			fmt.Println(color.ColorWarning("not a chat id: " + fields[1]))
			return
		}
		if err := sess.Open(ctx, id); err != nil {
			fmt.Println(color.ColorError(err.Error()))
			return
		}
		for _, m := range sess.Messages() {
			fmt.Printf("%s %s\n", color.ColorFaint(string(m.Role)+">"), m.Content.PlainText())
		}
	case "/models":
		list, err := sess.Models(ctx)
		if err != nil {
			fmt.Println(color.ColorError(err.Error()))
			return
		}
		for _, m := range list.Models {
			marker := " "
			if m.ID == sess.ModelID {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, m.ID, color.ColorFaint(m.Label))
		}
	case "/model":
		if len(fields) != 2 {
			fmt.Println(color.ColorWarning("usage: /model <id>"))
			return
		}
		sess.ModelID = fields[1]
		fmt.Println(color.ColorInfo("model set to " + sess.ModelID))
	case "/delete":
		if err := sess.Delete(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				fmt.Println(color.ColorError("server did not answer in time"))
				return
			}
			fmt.Println(color.ColorError(err.Error()))
			return
		}
		fmt.Println(color.ColorInfo("chat deleted, started " + sess.ChatID.String()))
	default:
		fmt.Println(color.ColorWarning("unknown command " + fields[0]))
	}
}
