package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leeineian/jukebox/home"
	"github.com/leeineian/jukebox/sys"
)

const pidFile = ".bot.pid"

func main() {
	// LogFatal panics so deferred cleanup still runs
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
				os.Exit(1)
			}
			panic(r)
		}
	}()

	silent := flag.Bool("silent", false, "Disable all log output")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	forceReg := flag.Bool("force-reg", false, "Register commands even if unchanged")
	flag.Parse()

	sys.InitLogger(*silent, true)

	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}

	if err := sys.InitDatabase(context.Background(), cfg.DatabasePath); err != nil {
		sys.LogFatal("Failed to initialize database: %v", err)
	}
	defer sys.CloseDatabase()

	sys.LogInfo(sys.MsgBotStarting, sys.GetProjectName())

	release := acquirePIDLock()
	defer release()

	if err := run(cfg, *silent, *skipReg, *forceReg); err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
}

// acquirePIDLock takes an exclusive lock on the PID file, terminating any
// instance that still holds it.
func acquirePIDLock() func() {
	f, err := os.OpenFile(pidFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		sys.LogFatal("Failed to open PID file: %v", err)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if err != syscall.EWOULDBLOCK {
			sys.LogFatal("Failed to lock PID file: %v", err)
		}

		var oldPid int
		_, _ = f.Seek(0, 0)
		if _, scanErr := fmt.Fscanf(f, "%d", &oldPid); scanErr != nil || oldPid == os.Getpid() {
			<-ticker.C
			continue
		}

		process, procErr := os.FindProcess(oldPid)
		if procErr != nil {
			<-ticker.C
			continue
		}

		sys.LogInfo(sys.MsgBotKillingOld, oldPid)
		if err := process.Signal(syscall.SIGTERM); err != nil {
			sys.LogWarn(sys.MsgBotKillFail, err)
		}

		deadline := time.After(5 * time.Second)
	waitLoop:
		for {
			select {
			case <-ticker.C:
				if err := process.Signal(syscall.Signal(0)); err != nil {
					break waitLoop
				}
			case <-deadline:
				sys.LogWarn("Old process %d is stubborn. Sending SIGKILL...", oldPid)
				_ = process.Signal(syscall.SIGKILL)
				break waitLoop
			}
		}
		sys.LogInfo(sys.MsgBotOldTerminated)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	if _, err := fmt.Fprintf(f, "%d", os.Getpid()); err != nil {
		sys.LogWarn(sys.MsgBotPIDWriteFail, err)
	}
	_ = f.Sync()

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		_ = os.Remove(pidFile)
	}
}

func run(cfg *sys.Config, silent, skipReg, forceReg bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	sys.SetAppContext(ctx)
	home.Setup(ctx, cfg)

	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	if !skipReg {
		if err := sys.RegisterCommands(client, cfg.GuildID, forceReg); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo("Skipping command registration as requested.")
	}

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	if !silent {
		fmt.Println()
	}

	if botUser, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, botUser.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.GetProjectName())
	}
	return nil
}
