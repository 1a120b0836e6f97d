package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/matheus3301/storechat/internal/api"
	"github.com/matheus3301/storechat/internal/client"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(
		statusCmd, roomsCmd, roomCmd, sendCmd, readCmd, typingCmd,
		windowCmd("open", "Open a floating chat window"),
		windowCmd("close", "Close a floating chat window"),
		windowCmd("minimize", "Minimize a floating chat window"),
		windowCmd("maximize", "Restore a minimized chat window"),
		mainPageCmd, layoutCmd, searchCmd, historyCmd, watchCmd,
	)
	searchCmd.Flags().StringVar(&searchRoom, "room", "", "restrict search to one room")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results")
	historyCmd.Flags().Int64Var(&historyBefore, "before", 0, "only messages older than this Unix millisecond timestamp")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum messages")
	watchCmd.Flags().StringVar(&watchNamespace, "namespace", "", "event kind prefix, e.g. chat. or window.")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.GetStatus(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				outputJSON(resp)
				return nil
			}
			fmt.Printf("Instance: %s\n", resp.Instance)
			fmt.Printf("Status:   %s\n", resp.State)
			fmt.Printf("Uptime:   %dms\n", resp.UptimeMs)
			fmt.Printf("Rooms:    %d\n", resp.RoomCount)
			fmt.Printf("Windows:  max %d\n", resp.MaxWindows)
			if resp.ArchiveEnabled {
				fmt.Printf("Archived: %d messages\n", resp.ArchivedMessages)
			}
			return nil
		})
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List chat rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.ListRooms(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				outputJSON(resp)
				return nil
			}
			for _, r := range resp.Rooms {
				fmt.Println(formatRoomLine(r))
			}
			return nil
		})
	},
}

var roomCmd = &cobra.Command{
	Use:   "room <id>",
	Short: "Show a room and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.GetRoom(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				outputJSON(resp)
				return nil
			}
			r := resp.Room
			fmt.Printf("%s (%s)%s\n", r.Contact.Name, r.ID, presence(r.Contact.Online))
			for _, m := range r.Messages {
				fmt.Println(formatMessage(m))
			}
			if r.Typing {
				fmt.Println("  ... typing")
			}
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <id> <text...>",
	Short: "Send a message to a room",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.SendMessage(ctx, args[0], text)
			if err != nil {
				return err
			}
			if jsonOut {
				outputJSON(resp)
				return nil
			}
			if !resp.Accepted {
				return fmt.Errorf("message not accepted (unknown room or empty text)")
			}
			fmt.Printf("sent %s\n", resp.Message.ID)
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a room as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.MarkAsRead(ctx, args[0])
			if err != nil {
				return err
			}
			return printAck(resp.Changed)
		})
	},
}

var typingCmd = &cobra.Command{
	Use:   "typing <id> <on|off>",
	Short: "Set a room's typing indicator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseToggle(args[1])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.SetTyping(ctx, args[0], on)
			if err != nil {
				return err
			}
			return printAck(resp.Changed)
		})
	},
}

func windowCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				var op func(context.Context, string) (*api.LayoutResponse, error)
				switch action {
				case "open":
					op = c.OpenWindow
				case "close":
					op = c.CloseWindow
				case "minimize":
					op = c.MinimizeWindow
				default:
					op = c.MaximizeWindow
				}
				resp, err := op(ctx, args[0])
				if err != nil {
					return err
				}
				return printLayout(resp)
			})
		},
	}
}

var mainPageCmd = &cobra.Command{
	Use:   "main-page <on|off> [id]",
	Short: "Enter or leave the full-page chat view",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseToggle(args[0])
		if err != nil {
			return err
		}
		var roomID string
		if len(args) == 2 {
			roomID = args[1]
		}
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.SetMainPage(ctx, on, roomID)
			if err != nil {
				return err
			}
			return printLayout(resp)
		})
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show floating windows and the active room",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.GetLayout(ctx)
			if err != nil {
				return err
			}
			return printLayout(resp)
		})
	},
}

var (
	searchRoom  string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the transcript archive",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.SearchArchive(ctx, query, searchRoom, searchLimit)
			if err != nil {
				return err
			}
			if jsonOut {
				outputJSON(resp)
				return nil
			}
			if len(resp.Messages) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, m := range resp.Messages {
				fmt.Printf("[%s] %s\n", m.RoomID, formatArchived(m))
			}
			return nil
		})
	},
}

var (
	historyBefore int64
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history <room-id>",
	Short: "Page through a room's archived transcript, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			resp, err := c.ListArchivedMessages(ctx, args[0], historyBefore, historyLimit)
			if err != nil {
				return err
			}
			if jsonOut {
				outputJSON(resp)
				return nil
			}
			if len(resp.Messages) == 0 {
				fmt.Println("No archived messages.")
				return nil
			}
			for _, m := range resp.Messages {
				fmt.Println(formatArchived(m))
			}
			if resp.HasMore {
				fmt.Printf("More: chatctl history %s --before %d\n", args[0], resp.NextBeforeMs)
			}
			return nil
		})
	},
}

var watchNamespace string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream daemon events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		events, err := c.WatchEvents(ctx, watchNamespace)
		if err != nil {
			return err
		}
		for {
			evt, err := events.Recv()
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return err
			}
			if jsonOut {
				outputJSON(evt)
				continue
			}
			fmt.Printf("%s %-24s %s\n", formatMillis(evt.OccurredAtMs), evt.Kind, string(evt.Payload))
		}
	},
}

func printAck(changed bool) error {
	if jsonOut {
		outputJSON(map[string]bool{"changed": changed})
		return nil
	}
	if !changed {
		fmt.Println("unchanged")
		return nil
	}
	fmt.Println("ok")
	return nil
}

func printLayout(resp *api.LayoutResponse) error {
	if jsonOut {
		outputJSON(resp)
		return nil
	}
	fmt.Print(formatLayout(resp.Layout))
	return nil
}
