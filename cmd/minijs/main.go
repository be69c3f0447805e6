package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/snippetlab/minijs"
)

var (
	flagMaxDepth int
	flagStrict   bool
	flagVerbose  bool
)

func main() {
	root := &cobra.Command{
		Use:           "minijs",
		Short:         "Run scripts on the minijs evaluator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run <script.js>",
		Short: "Run a script and print its transcript",
		Args:  cobra.ExactArgs(1),
		RunE:  doRun,
	}
	runCmd.Flags().IntVar(&flagMaxDepth, "max-depth", minijs.DefaultMaxDepth, "maximum call stack depth")
	runCmd.Flags().BoolVar(&flagStrict, "strict", false, "run the script in strict mode")

	astCmd := &cobra.Command{
		Use:   "ast <script.js>",
		Short: "Parse a script and print its AST",
		Args:  cobra.ExactArgs(1),
		RunE:  doAST,
	}

	checkCmd := &cobra.Command{
		Use:   "check <suite.yaml>",
		Short: "Run a YAML suite of scripts and compare their transcripts",
		Args:  cobra.ExactArgs(1),
		RunE:  doCheck,
	}
	checkCmd.Flags().IntVar(&flagMaxDepth, "max-depth", minijs.DefaultMaxDepth, "maximum call stack depth")

	root.AddCommand(runCmd, astCmd, checkCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}

	var log zerolog.Logger
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

func doRun(cmd *cobra.Command, args []string) error {
	log := newLogger()
	vm := minijs.NewVMWith(minijs.Options{
		MaxDepth:    flagMaxDepth,
		ForceStrict: flagStrict,
		Logger:      &log,
	})

	runErr := vm.RunScriptFile(args[0])
	if runErr == nil {
		runErr = vm.RunToCompletion()
	}

	for _, line := range vm.Transcript().Lines() {
		fmt.Println(line)
	}
	return runErr
}

func doAST(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return minijs.PrintAST(os.Stdout, args[0], f)
}

// Suite is a checklist of scripts with their expected transcripts.
type Suite struct {
	Cases []SuiteCase `yaml:"cases"`
}

type SuiteCase struct {
	Name   string   `yaml:"name"`
	Source string   `yaml:"source"`
	File   string   `yaml:"file"`
	Strict bool     `yaml:"strict"`
	Expect []string `yaml:"expect"`
}

type caseOutcome struct {
	Name    string
	Success bool
	Error   error
}

func doCheck(cmd *cobra.Command, args []string) error {
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var suite Suite
	if err := yaml.Unmarshal(buf, &suite); err != nil {
		return fmt.Errorf("while parsing %s: %w", args[0], err)
	}

	log := newLogger()
	outcomes := make([]caseOutcome, 0, len(suite.Cases))
	for _, sc := range suite.Cases {
		outcomes = append(outcomes, runSuiteCase(log, sc))
	}

	successes := 0
	for _, co := range outcomes {
		if co.Success {
			successes++
		}
	}
	failures := len(outcomes) - successes

	fmt.Printf("group SUCCESSES %d\n", successes)
	for _, co := range outcomes {
		if co.Success {
			fmt.Printf("case\t%s\n", co.Name)
		}
	}

	fmt.Printf("group FAILURES %d\n", failures)
	for _, co := range outcomes {
		if co.Success {
			continue
		}
		fmt.Printf("case\t%s\n", co.Name)
		for ndx, line := range strings.Split(co.Error.Error(), "\n") {
			if ndx == 0 {
				fmt.Printf("error\t\t%s\n", line)
			} else {
				fmt.Printf("ectx\t\t%s\n", line)
			}
		}
	}

	fmt.Printf("summary\ttotal: %d; %d successes; %d failures\n", len(outcomes), successes, failures)

	if failures > 0 {
		return fmt.Errorf("%d of %d cases failed", failures, len(outcomes))
	}
	return nil
}

func runSuiteCase(log zerolog.Logger, sc SuiteCase) caseOutcome {
	log.Debug().Str("case", sc.Name).Msg("running suite case")

	vm := minijs.NewVMWith(minijs.Options{
		MaxDepth:    flagMaxDepth,
		ForceStrict: sc.Strict,
		Logger:      &log,
	})

	var runErr error
	if sc.File != "" {
		runErr = vm.RunScriptFile(sc.File)
	} else {
		runErr = vm.RunString(sc.Name, sc.Source)
	}
	if runErr == nil {
		runErr = vm.RunToCompletion()
	}

	// uncaught exceptions land on the transcript; what the suite checks is
	// the transcript, so only internal errors fail a case outright
	if runErr != nil {
		if _, isExc := runErr.(*minijs.Exception); !isExc {
			return caseOutcome{Name: sc.Name, Error: runErr}
		}
	}

	got := vm.Transcript().Lines()
	if diff := diffLines(sc.Expect, got); diff != "" {
		return caseOutcome{Name: sc.Name, Error: fmt.Errorf("transcript mismatch:\n%s", diff)}
	}
	return caseOutcome{Name: sc.Name, Success: true}
}

func diffLines(expect, got []string) string {
	var sb strings.Builder
	n := len(expect)
	if len(got) > n {
		n = len(got)
	}
	mismatch := false
	for i := 0; i < n; i++ {
		var e, g string
		if i < len(expect) {
			e = expect[i]
		}
		if i < len(got) {
			g = got[i]
		}
		if e != g {
			mismatch = true
			fmt.Fprintf(&sb, "line %d: expected %q, got %q\n", i+1, e, g)
		}
	}
	if !mismatch {
		return ""
	}
	return strings.TrimRight(sb.String(), "\n")
}
