package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/famhub/internal/callclient"
	"github.com/park285/famhub/internal/media/pion"
	"github.com/park285/famhub/internal/msgcat"
	"github.com/park285/famhub/internal/poll"
	"github.com/park285/famhub/pkg/famdto"
	"github.com/spf13/cobra"
)

const heartbeatInterval = 5 * time.Second

type callFlags struct {
	window time.Duration
}

func (f *callFlags) bind(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.window, "answer-window", callclient.DefaultConfig().AnswerWindow, "how long an outgoing call rings")
}

func (a *app) newCallClient(f callFlags, opts ...callclient.Option) *callclient.Client {
	cfg := callclient.DefaultConfig()
	cfg.AnswerWindow = f.window
	cfg.RequestTimeout = a.timeout
	return callclient.New(a.api, pion.NewFactory(pion.Config{ICEServers: a.stun}), cfg, opts...)
}

// keepAlive heartbeats until ctx ends so the user stays online while a
// command waits.
func (a *app) keepAlive(ctx context.Context) *poll.Task {
	return poll.Start(ctx, poll.Options{Interval: heartbeatInterval, Immediate: true}, func(ctx context.Context) bool {
		_ = a.api.Heartbeat(ctx)
		return false
	})
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newCallCmd(a *app) *cobra.Command {
	var f callFlags
	cmd := &cobra.Command{
		Use:   "call <user-id>",
		Short: "Place a voice call and stay on it until it ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			hb := a.keepAlive(ctx)
			defer hb.Stop()

			cc := a.newCallClient(f)
			cc.Start(ctx)
			defer cc.Close()

			fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Text("call.placing", map[string]any{"Peer": args[0]}))
			if err := cc.Call(ctx, args[0]); err != nil {
				return err
			}
			final := followCall(ctx, cc, cmd.OutOrStdout(), a.msgs, nil)
			return hangupIfLive(cc, final, a.timeout)
		},
	}
	f.bind(cmd)
	return cmd
}

func newListenCmd(a *app) *cobra.Command {
	var (
		f       callFlags
		decline bool
		once    bool
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Wait for incoming calls and answer them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			hb := a.keepAlive(ctx)
			defer hb.Stop()

			out := cmd.OutOrStdout()
			cc := a.newCallClient(f, callclient.OnRing(func(in famdto.IncomingCall) {
				fmt.Fprintln(out, a.msgs.Text("call.ringing", map[string]any{
					"Name": in.CallerName, "Caller": in.CallerID, "CallID": in.CallID,
				}))
			}))
			cc.Start(ctx)
			defer cc.Close()

			onRing := func(tr callclient.Transition) {
				rctx, cancel := context.WithTimeout(ctx, a.timeout)
				defer cancel()
				var err error
				if decline {
					fmt.Fprintln(out, a.msgs.Text("call.auto_decline", map[string]any{"CallID": tr.CallID}))
					err = cc.Decline(rctx)
				} else {
					err = cc.Answer(rctx)
				}
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			}
			for {
				final := followCall(ctx, cc, out, a.msgs, onRing)
				if err := hangupIfLive(cc, final, a.timeout); err != nil || once || ctx.Err() != nil {
					return err
				}
			}
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&decline, "decline", false, "decline every incoming call")
	cmd.Flags().BoolVar(&once, "once", false, "exit after the first call ends")
	return cmd
}

// followCall prints transitions until the attempt reaches a terminal state
// or ctx ends, and returns the last state seen.
func followCall(ctx context.Context, cc *callclient.Client, out io.Writer, msgs *msgcat.Catalog, onRing func(callclient.Transition)) callclient.State {
	events := cc.Events()
	for {
		select {
		case <-ctx.Done():
			return cc.State()
		case tr := <-events:
			fmt.Fprintln(out, msgs.Text("call.state", map[string]any{
				"CallID": tr.CallID, "From": tr.From, "To": tr.To, "Reason": tr.Reason,
			}))
			switch {
			case tr.To == callclient.StateConnected:
				fmt.Fprintln(out, msgs.Text("call.connected", nil))
			case tr.To == callclient.StateRinging && onRing != nil:
				onRing(tr)
			case tr.To.Terminal():
				fmt.Fprintln(out, msgs.Text("call.finished", map[string]any{"State": tr.To}))
				return tr.To
			}
		}
	}
}

func hangupIfLive(cc *callclient.Client, st callclient.State, timeout time.Duration) error {
	if st.Idle() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return cc.Hangup(ctx)
}
