package cmd

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

var (
	CliHistFileEnv     = "MOCKROSCLI_HISTFILE"
	CliHistFileDefault = ".mockroscli_history"
)

type CliConfig struct {
	HostIp   string
	HostPort int
	Timeout  time.Duration

	prompt string
}

// Cli is a line-oriented client for poking an echo node: each non-blank line
// typed is trimmed, sent with a trailing newline and the reply printed back.
// In the repl, quit, exit and clear are handled locally and not sent.
type Cli struct {
	config *CliConfig
	conn   net.Conn
}

func NewCli(config *CliConfig) *Cli {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	return &Cli{config: config}
}

func (cli *Cli) connect() error {
	addr := fmt.Sprintf("%s:%d", cli.config.HostIp, cli.config.HostPort)
	conn, err := net.DialTimeout("tcp", addr, cli.config.Timeout)
	if err != nil {
		return err
	}
	cli.conn = conn
	cli.config.prompt = addr + "> "
	return nil
}

// Run connects, then enters the repl on a terminal or streams stdin
// line-by-line otherwise.
func (cli *Cli) Run() error {
	if err := cli.connect(); err != nil {
		return err
	}
	defer cli.conn.Close()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		return cli.repl()
	}
	return cli.pipeMode()
}

func (cli *Cli) repl() error {
	historyFile := getDotfilePath(CliHistFileEnv, CliHistFileDefault)
	if historyFile != "" {
		Line.HistoryLoad(historyFile)
	}
	defer Line.Close()

	for {
		line, err := Line.Prompt(cli.config.prompt)
		if err != nil {
			// ctrl-c or EOF
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		Line.AppendHistory(line)
		if historyFile != "" {
			Line.HistorySave(historyFile)
		}

		switch line {
		case "quit", "exit":
			return nil
		case "clear":
			Line.ClearScreen()
			continue
		}

		reply, err := cli.roundtrip(line)
		if err != nil {
			fmt.Printf("(error) %v\n", err)
			return err
		}
		fmt.Println(reply)
	}
}

func (cli *Cli) pipeMode() error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, err := cli.roundtrip(line)
		if err != nil {
			return err
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}

func (cli *Cli) roundtrip(line string) (string, error) {
	if _, err := cli.conn.Write(append([]byte(line), '\n')); err != nil {
		return "", err
	}
	cli.conn.SetReadDeadline(time.Now().Add(cli.config.Timeout))
	buf := make([]byte, 4096)
	n, err := cli.conn.Read(buf)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf[:n]), "\n"), nil
}

func getDotfilePath(envOverride, dotFilename string) string {
	if path := os.Getenv(envOverride); path != "" {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, dotFilename)
}
