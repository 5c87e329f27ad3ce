package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lachiem1/payplan/internal/auth"
	"github.com/lachiem1/payplan/internal/cli"
	"github.com/lachiem1/payplan/internal/config"
	"github.com/lachiem1/payplan/internal/remote"
)

const remoteCheckTimeout = 5 * time.Second

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the remote sync credentials",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the remote token (or Redis password) in the system keyring",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Print("Enter remote token: ")
		token, err := readSecret()
		if err != nil {
			return err
		}
		fmt.Println()

		if strings.TrimSpace(token) == "" {
			return errors.New("empty token")
		}
		if err := auth.SaveRemoteToken(token); err != nil {
			return err
		}
		fmt.Println(cli.OK("Token saved to your system credential store."))
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		userID, err := auth.LoadUserID()
		switch {
		case errors.Is(err, auth.ErrNotConfigured):
			userID = cli.Muted("(created on first run)")
		case err != nil:
			return err
		}
		token, err := auth.LoadRemoteToken()
		shown := cli.Muted("(not set)")
		switch {
		case errors.Is(err, auth.ErrNotConfigured):
		case err != nil:
			return err
		default:
			// Do not print the token value.
			shown = fmt.Sprintf("set (%d chars)", len(token))
		}
		fmt.Print(cli.Field("User id", userID))
		fmt.Print(cli.Field("Remote token", shown))
		fmt.Print(cli.Field("Remote", remoteStatus(cmd.Context(), cfg, token)))
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the remote token and this device's cached snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		err := withApp(cmd.Context(), func(a *app) error {
			return a.sync.SignOut(cmd.Context())
		})
		if err != nil {
			return err
		}
		if err := auth.DeleteRemoteToken(); err != nil {
			return err
		}
		fmt.Println(cli.OK("Signed out."))
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetCmd, authStatusCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

// remoteStatus checks that the configured remote answers with token.
func remoteStatus(ctx context.Context, cfg config.Config, token string) string {
	ctx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	var err error
	switch cfg.Remote.Kind {
	case config.RemoteHTTP:
		err = remote.New(config.RemoteURL(cfg), token).Ping(ctx)
	case config.RemoteRedis:
		var rs *remote.RedisStore
		rs, err = remote.NewRedisStore(ctx, remote.RedisConfig{
			Addr: config.RedisAddr(cfg), Password: token, DB: cfg.Remote.RedisDB,
		})
		if err == nil {
			_ = rs.Close()
		}
	default:
		return cli.Muted("none (local only)")
	}
	if err != nil {
		return cli.Muted(cfg.Remote.Kind + " unreachable: " + err.Error())
	}
	return cfg.Remote.Kind + " reachable"
}

func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		value, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(value), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) && len(line) == 0 {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
