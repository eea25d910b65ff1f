// Command sharecast is an interactive turtle-script shell with undo/redo and
// live session sharing.
//
// Statements typed at the prompt run through a history-decorated interpreter
// store. ":share" presents the session through a relay server and prints the
// watch link (plus a QR code); "--watch" joins someone else's session and
// mirrors their action stream locally.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"sharecast/internal/history"
	"sharecast/internal/logger"
	"sharecast/internal/relay"
	"sharecast/internal/script"
	"sharecast/internal/store"
)

type scriptState = history.State[script.State]

func main() {
	serverURL := flag.String("server", "http://localhost:3111", "relay server base URL")
	watch := flag.String("watch", "", "watch link or session id to join")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logger.SetLevel(logger.LevelDebug)
	}

	st := store.New(
		history.Wrap(script.Initial()),
		history.Decorate(script.Reduce, script.Marker),
	)

	watchDone := make(chan struct{})
	rly := relay.New(relay.Config{
		Endpoint:  wsEndpoint(*serverURL),
		ShareBase: strings.TrimSuffix(*serverURL, "/") + "/",
		Dispatch: func(raw []byte) {
			action, err := script.DecodeAction(raw)
			if err != nil {
				logger.Warnf("dropped unreadable relayed action: %v", err)
				return
			}
			state := st.Dispatch(action)
			printState(state)
		},
		Reset: func() {
			st.Dispatch(script.Reset{})
		},
		Notify: func(ev relay.Event) {
			switch ev.Kind {
			case relay.EventPresentStarted:
				fmt.Printf("sharing started: %s\n", ev.WatchURL)
				if q, err := qrcode.New(ev.WatchURL, qrcode.Medium); err == nil {
					fmt.Println(q.ToSmallString(false))
				}
			case relay.EventPresentStopped:
				fmt.Println("sharing stopped")
			case relay.EventPresentFailed:
				fmt.Printf("failed to start sharing: %v\n", ev.Err)
			case relay.EventWatchStarted:
				fmt.Printf("watching session %s\n", ev.SessionID)
			case relay.EventWatchStopped:
				fmt.Println("watching ended")
				close(watchDone)
			case relay.EventWatchFailed:
				fmt.Printf("failed to start watching: %v\n", ev.Err)
			}
		},
	})

	// Relay middleware: forward every advancing domain action. Undo/redo are
	// local control actions and are never put on the wire.
	var lastMarker int64
	st.Subscribe(func(action store.Action, state scriptState) {
		marker := script.Marker(state.Present)
		advanced := marker != lastMarker
		lastMarker = marker

		switch action.ActionType() {
		case history.TypeUndo, history.TypeRedo, script.TypeReset:
			return
		}
		if !advanced {
			return
		}
		raw, err := script.EncodeAction(action)
		if err != nil {
			logger.Debugf("action %s not relayable: %v", action.ActionType(), err)
			return
		}
		rly.RelayAction(context.Background(), raw)
	})

	if *watch != "" {
		runWatcher(rly, *watch, watchDone)
		return
	}
	runShell(st, rly)
}

func runWatcher(rly *relay.Relay, target string, watchDone chan struct{}) {
	id := relay.WatchParam(target)
	if id == "" {
		id = target
	}
	if err := rly.TryStartWatching(context.Background(), id); err != nil {
		os.Exit(1)
	}
	<-watchDone
}

func runShell(st *store.Store[scriptState], rly *relay.Relay) {
	fmt.Println("sharecast - type statements, :help for commands")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := command(st, rly, line); quit {
				return
			}
			continue
		}

		before := st.State()
		after := st.Dispatch(script.SubmitStatement{Text: line})
		if script.Marker(after.Present) == script.Marker(before.Present) {
			fmt.Println("statement rejected")
			continue
		}
		printState(after)
	}
}

func command(st *store.Store[scriptState], rly *relay.Relay, line string) (quit bool) {
	switch line {
	case ":undo":
		printState(st.Dispatch(history.Undo))
	case ":redo":
		printState(st.Dispatch(history.Redo))
	case ":share":
		if err := rly.StartPresenting(context.Background()); err != nil {
			logger.Debugf("share failed: %v", err)
		}
	case ":stop":
		if err := rly.StopPresenting(); err != nil {
			fmt.Println("not sharing")
		}
	case ":state":
		printState(st.State())
	case ":quit", ":q":
		if rly.Role() == relay.RolePresenting {
			_ = rly.StopPresenting()
		}
		return true
	case ":help":
		fmt.Println("commands: :undo :redo :share :stop :state :quit")
	default:
		fmt.Printf("unknown command %s\n", line)
	}
	return false
}

func printState(state scriptState) {
	t := state.Present.Turtle
	pen := "up"
	if t.PenDown {
		pen = "down"
	}
	flags := ""
	if state.CanUndo {
		flags += " [undo]"
	}
	if state.CanRedo {
		flags += " [redo]"
	}
	fmt.Printf("turtle at (%.1f, %.1f) heading %.0f pen %s, %d lines%s\n",
		t.X, t.Y, t.Heading, pen, len(state.Present.Lines), flags)
}

// wsEndpoint derives the relay websocket URL from the server base URL.
func wsEndpoint(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/share"
	return u.String()
}
