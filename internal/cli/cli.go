// Package cli implements the REPL: MAIN and PROCESS modes, the command
// dispatch table, and the banner — a 1:1 port of original_source's
// Console onto github.com/chzyer/readline for line editing and
// github.com/fatih/color for ANSI output in place of raw escapes.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/jasonkoogler/csopesy-sim/internal/config"
	"github.com/jasonkoogler/csopesy-sim/internal/errs"
	"github.com/jasonkoogler/csopesy-sim/internal/manager"
	"github.com/jasonkoogler/csopesy-sim/internal/report"
)

const banner = `
    _____  _____  ____  _____  ______  _______    __
   / ____|/ ____|/ __ \|  __ \|  ____|/ ____|\ \  / /
  | |    | (___ | |  | | |__) | |__  | (___  \ \_/ /
  | |     \___ \| |  | |  ___/|  __|  \___ \  \  /
  | |____ ____) | |__| | |    | |____ ____) |  | |
   \_____|_____/ \____/|_|    |______|_____/   |_|
`

const utilizationLogPath = "csopesy-log.txt"

// Console drives the interactive REPL against a lazily-initialized
// manager.Manager, built from the config file at configPath once
// "initialize" is issued.
type Console struct {
	configPath string
	logDir     string
	log        *zap.Logger
	cyclesCap  uint64

	out io.Writer
	rl  *readline.Instance

	mgr         *manager.Manager
	initialized bool

	inProcessScreen bool
	currentProcess  string
}

// New constructs a Console reading config from configPath and writing
// per-process logs under logDir. log receives lifecycle diagnostics
// from the manager once initialized. cyclesCap caps the total virtual
// cycles the system runs before a forced shutdown; 0 means unbounded.
func New(configPath, logDir string, log *zap.Logger, cyclesCap uint64) (*Console, error) {
	rl, err := readline.New("")
	if err != nil {
		return nil, fmt.Errorf("cli: init readline: %w", err)
	}
	return &Console{
		configPath: configPath,
		logDir:     logDir,
		log:        log,
		cyclesCap:  cyclesCap,
		out:        rl.Stdout(),
		rl:         rl,
	}, nil
}

// Close releases the underlying line editor.
func (c *Console) Close() error { return c.rl.Close() }

func (c *Console) printHeader() {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintln(c.out, green(banner))
	fmt.Fprintln(c.out, yellow("Welcome to the CPU scheduler emulator!"))
	fmt.Fprintln(c.out, "Type 'help' for available commands or 'initialize' to begin.")
}

func (c *Console) prompt() string {
	if c.inProcessScreen {
		return "[PROCESS]> "
	}
	return "[MAIN]> "
}

func (c *Console) showHelp() {
	if c.inProcessScreen {
		fmt.Fprintln(c.out, "Available commands:")
		fmt.Fprintln(c.out, "    process-smi - Show process info and logs.")
		fmt.Fprintln(c.out, "    exit        - Return to the main menu.")
		return
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintln(c.out, yellow("Available commands:"))
	fmt.Fprintln(c.out, "    initialize          - Initialize the system from config.txt (must run first).")
	fmt.Fprintln(c.out, "    screen -s <name>    - Create a new process and attach to its screen.")
	fmt.Fprintln(c.out, "    screen -ls          - List all running and finished processes.")
	fmt.Fprintln(c.out, "    screen -r <name>    - Re-attach to a running process's screen.")
	fmt.Fprintln(c.out, "    scheduler-start     - Start automatically generating processes.")
	fmt.Fprintln(c.out, "    scheduler-stop      - Stop generating processes.")
	fmt.Fprintln(c.out, "    report-util         - Append a utilization report to csopesy-log.txt.")
	fmt.Fprintln(c.out, "    exit                - Terminate the console.")
	fmt.Fprintln(c.out, "    help                - Show this help message.")
	fmt.Fprintln(c.out, "    clear               - Clear the console screen.")
}

func (c *Console) clearScreen() {
	fmt.Fprint(c.out, "\033[2J\033[1;1H")
}

// Run drives the REPL loop until "exit" or input EOF.
func (c *Console) Run() error {
	c.clearScreen()
	c.printHeader()
	red := color.New(color.FgRed).SprintFunc()

	for {
		if c.inProcessScreen {
			c.runProcessScreen()
			continue
		}

		c.rl.SetPrompt(c.prompt())
		line, err := c.rl.Readline()
		if err != nil {
			break
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		fields := strings.Fields(input)
		base := strings.ToLower(fields[0])

		if (!c.initialized) && base != "initialize" && base != "help" && base != "exit" {
			fmt.Fprintln(c.out, red("System not initialized. Please run 'initialize' first."))
			continue
		}

		switch base {
		case "exit":
			fmt.Fprintln(c.out, "Terminating console. Goodbye!")
			if c.mgr != nil {
				c.mgr.Shutdown()
			}
			return nil
		case "initialize":
			c.handleInitialize()
		case "help":
			c.showHelp()
		case "clear":
			c.clearScreen()
		case "screen":
			c.handleScreen(fields)
		case "scheduler-start", "scheduler-test":
			c.mgr.StartBatch()
			fmt.Fprintln(c.out, "Started generating processes.")
		case "scheduler-stop":
			c.mgr.StopBatch()
			fmt.Fprintln(c.out, "Stopped generating processes.")
		case "report-util":
			c.handleReport()
		default:
			fmt.Fprintln(c.out, red("Invalid command. Type 'help' for available commands."))
		}
	}
	if c.mgr != nil {
		c.mgr.Shutdown()
	}
	return nil
}

func (c *Console) handleInitialize() {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		fmt.Fprintf(c.out, "Initialization failed: %v\n", err)
		c.initialized = false
		return
	}

	c.mgr = manager.New(cfg, c.log, c.logDir, c.cyclesCap)
	c.mgr.StartScheduler()
	c.initialized = true
	fmt.Fprintln(c.out, "System initialized successfully.")
}

func (c *Console) handleScreen(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(c.out, "Invalid screen command. Use 'screen -s <name>', 'screen -r <name>', or 'screen -ls'.")
		return
	}
	sub := fields[1]
	name := ""
	if len(fields) > 2 {
		name = strings.Join(fields[2:], " ")
	}

	switch sub {
	case "-s":
		if name == "" {
			fmt.Fprintln(c.out, "Usage: screen -s <process_name>")
			return
		}
		if _, err := c.mgr.AddProcess(name); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		c.inProcessScreen = true
		c.currentProcess = name
	case "-ls":
		fmt.Fprintln(c.out)
		_ = report.WriteSystemStatus(c.out, c.mgr.Snapshot())
	case "-r":
		if name == "" {
			fmt.Fprintln(c.out, "Usage: screen -r <process_name>")
			return
		}
		p, ok := c.mgr.GetProcess(name)
		if !ok {
			fmt.Fprintln(c.out, errs.NewNotFoundError(name))
			return
		}
		if p.IsFinished() {
			fmt.Fprintln(c.out, errs.NewAlreadyFinishedError(name))
			return
		}
		c.inProcessScreen = true
		c.currentProcess = name
	default:
		fmt.Fprintln(c.out, "Invalid screen command. Use 'screen -s <name>', 'screen -r <name>', or 'screen -ls'.")
	}
}

func (c *Console) handleReport() {
	if err := report.WriteUtilizationReport(utilizationLogPath, c.mgr.Snapshot()); err != nil {
		fmt.Fprintf(c.out, "Failed to generate report: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Report appended to %s\n", utilizationLogPath)
}

func (c *Console) printProcessSMI() {
	p, ok := c.mgr.GetProcess(c.currentProcess)
	if !ok {
		fmt.Fprintln(c.out, errs.NewNotFoundError(c.currentProcess))
		c.exitProcessScreen()
		return
	}
	fmt.Fprintf(c.out, "===== Process Name: %s =====\n", p.Name())
	fmt.Fprintf(c.out, "ID: %d\n", p.ID())
	fmt.Fprintln(c.out, "Logs:")
	for _, l := range p.RecentLogs(50) {
		fmt.Fprintln(c.out, l)
	}
	fmt.Fprintf(c.out, "\nCurrent instruction line: %d\n", p.PC())
	fmt.Fprintf(c.out, "Lines of code: %d\n", p.CodeSize())
	if p.IsFinished() {
		fmt.Fprintln(c.out, "\nFINISHED!")
	}
}

func (c *Console) exitProcessScreen() {
	c.inProcessScreen = false
	c.currentProcess = ""
	c.clearScreen()
	c.printHeader()
}

func (c *Console) runProcessScreen() {
	p, ok := c.mgr.GetProcess(c.currentProcess)
	if !ok {
		fmt.Fprintln(c.out, errs.NewNotFoundError(c.currentProcess))
		c.inProcessScreen = false
		return
	}
	if p.IsFinished() {
		fmt.Fprintln(c.out, errs.NewAlreadyFinishedError(c.currentProcess))
		c.inProcessScreen = false
		return
	}

	c.printProcessSMI()
	c.rl.SetPrompt(c.prompt())
	line, err := c.rl.Readline()
	if err != nil {
		c.inProcessScreen = false
		return
	}
	cmd := strings.ToLower(strings.TrimSpace(line))

	switch cmd {
	case "exit":
		c.exitProcessScreen()
	case "process-smi":
		c.clearScreen()
	default:
		fmt.Fprintln(c.out, "Invalid command. Use 'process-smi' or 'exit'.")
	}
}
