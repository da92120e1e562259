// Command codriver is a CLI coding agent: it sends prompts to an
// LLM provider and lets the model use local file, process and network
// tools to complete the request.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/codriver-ai/codriver/callbacks"
	"github.com/codriver-ai/codriver/chat"
	"github.com/codriver-ai/codriver/chatmodel"
	"github.com/codriver-ai/codriver/pkg/llmfactory"
	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/pkg/proc"
	"github.com/codriver-ai/codriver/store"
	"github.com/codriver-ai/codriver/tools"
	"github.com/codriver-ai/codriver/tools/files"
	"github.com/codriver-ai/codriver/tools/system"
)

const defaultSystemPrompt = `You are codriver, a coding assistant running in the user's terminal.
You have tools to read and modify files, run Python and shell commands, and fetch URLs.
Use them to complete the user's request, then summarize what you did.`

type cliFlags struct {
	chatMode  bool
	configLoc string
	model     string
	system    string
	workdir   string
	redisAddr string
	chatID    string
	verbose   bool
	noColor   bool
}

func main() {
	rc := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	os.Exit(rc)
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:           "codriver [prompt]",
		Short:         "codriver is a tool-calling LLM agent for the terminal",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), &flags, args, in, out, errOut)
		},
	}
	cmd.Flags().BoolVar(&flags.chatMode, "chat", false, "start an interactive chat session")
	cmd.Flags().StringVar(&flags.configLoc, "config", "", "provider config file; CODRIVER_* environment variables are used when omitted")
	cmd.Flags().StringVar(&flags.model, "model", "", "model name override")
	cmd.Flags().StringVar(&flags.system, "system", "", "system prompt override")
	cmd.Flags().StringVar(&flags.workdir, "workdir", ".", "root directory for file tools")
	cmd.Flags().StringVar(&flags.redisAddr, "redis", "", "redis address for transcript persistence, e.g. localhost:6379")
	cmd.Flags().StringVar(&flags.chatID, "chat-id", "", "chat ID to resume a persisted transcript")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored tool activity lines")

	cmd.SetOut(out)
	cmd.SetErr(errOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "codriver: %s\n", err.Error())
		return 1
	}
	return 0
}

func runAgent(ctx context.Context, flags *cliFlags, args []string, in io.Reader, out, errOut io.Writer) error {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if flags.verbose {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.ERROR)
	}

	factory, err := llmfactory.Load(flags.configLoc)
	if err != nil {
		return err
	}
	var model llms.Model
	if flags.model != "" {
		model, err = factory.ModelByName(flags.model)
	} else {
		model, err = factory.DefaultModel()
	}
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	registry.MustRegister(files.NewTools(flags.workdir)...)
	// subprocess output is echoed live, each stream to its own terminal stream
	engine := proc.NewEngine(proc.WithMirror(out, errOut))
	registry.MustRegister(system.NewTools(engine)...)

	mode := callbacks.ModeDefault
	if flags.verbose {
		mode = callbacks.ModeVerbose
	}
	printer := callbacks.NewPrinter(out, mode).WithColor(!flags.noColor)

	systemPrompt := flags.system
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	sessOpts := []chat.Option{
		chat.WithSystemPrompt(systemPrompt),
		chat.WithCallback(printer),
	}
	if flags.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: flags.redisAddr})
		sessOpts = append(sessOpts, chat.WithStore(store.NewRedisStore(client, "codriver")))
	}
	if flags.chatID != "" {
		ctx = chatmodel.NewContext(ctx, chatmodel.NewChat(flags.chatID, nil))
	}

	sess := chat.NewSession(model, registry, sessOpts...)

	if flags.chatMode {
		return runChatLoop(ctx, sess, in, out)
	}

	prompt, err := resolvePrompt(args, in)
	if err != nil {
		return err
	}
	res, err := sess.Ask(ctx, prompt)
	if err != nil {
		return err
	}
	fmt.Fprint(out, llmutils.EnsureEndsWithNewline(res.Content))
	return nil
}

// resolvePrompt takes the prompt from the argument, or from stdin when
// input is piped in.
func resolvePrompt(args []string, in io.Reader) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if f, ok := in.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("no prompt provided")
		}
	}
	piped, err := io.ReadAll(in)
	if err != nil {
		return "", errors.Wrap(err, "failed to read prompt from stdin")
	}
	prompt := strings.TrimSpace(string(piped))
	if prompt == "" {
		return "", errors.New("no prompt provided")
	}
	return prompt, nil
}

func runChatLoop(ctx context.Context, sess *chat.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Starting interactive chat session. Type 'exit' or 'quit' to end, '/reset' to clear history.")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, ">>> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "exit", input == "quit":
			fmt.Fprintln(out, "Chat session ended.")
			return nil
		case input == "/reset":
			if err := sess.Reset(ctx); err != nil {
				fmt.Fprintf(out, "reset failed: %s\n", err.Error())
			} else {
				fmt.Fprintln(out, "History cleared.")
			}
			continue
		}

		res, err := sess.Ask(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %s\n", err.Error())
			continue
		}
		fmt.Fprint(out, llmutils.EnsureEndsWithNewline(res.Content))
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to read input")
	}
	fmt.Fprintln(out, "\nChat session ended.")
	return nil
}
