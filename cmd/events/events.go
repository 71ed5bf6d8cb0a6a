package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"imc-manager/cmd/root"
	"imc-manager/internal/models"
	"imc-manager/internal/sse"
	"imc-manager/internal/utils"
	"imc-manager/internal/view"

	"github.com/spf13/cobra"
)

var (
	limit  int
	follow bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "查看最近的流水线事件",
	Long:  "输出服务缓存的最近事件(最新的在前), --follow持续输出新事件",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := showEvents(ctx); err != nil {
			root.Exit(err)
		}
	},
}

type eventsReply struct {
	Events []view.EventRow     `json:"events"`
	Stream models.StreamStatus `json:"stream"`
}

func showEvents(ctx context.Context) error {
	var reply eventsReply
	if err := root.GetJSON(ctx, "/events", map[string]interface{}{"limit": limit}, &reply); err != nil {
		return err
	}
	if !reply.Stream.Connected && reply.Stream.Error != "" {
		fmt.Fprintf(os.Stderr, "event stream disconnected: %s\n", reply.Stream.Error)
	}
	dataList, err := utils.ToOrderedMaps(reply.Events)
	if err != nil {
		return err
	}
	utils.PrintFormat(dataList)
	if !follow {
		return nil
	}
	return followEvents(ctx, os.Stdout)
}

/**
 * Print events pushed by the server until ctx is cancelled
 * @param {context.Context} ctx - Cancelling ctx closes the stream
 * @param {io.Writer} w - Destination
 * @returns {error} Connection or read errors, nil when ctx is cancelled
 * @description
 * - Subscribes to /imc/api/v1/stream and keeps only "event" messages
 */
func followEvents(ctx context.Context, w io.Writer) error {
	client := root.NewClient()
	defer client.Close()

	resp, err := client.Open(ctx, root.APIPrefix+"/stream", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	parser := sse.NewParser(resp.Body)
	for {
		ev, err := parser.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ev.Type != "event" {
			continue
		}
		var dto models.EventDto
		if err := json.Unmarshal([]byte(ev.Data), &dto); err != nil {
			continue
		}
		fmt.Fprintln(w, FormatEvent(dto))
	}
}

// FormatEvent 单行事件文本
func FormatEvent(e models.EventDto) string {
	rows := view.EventRows([]models.EventDto{e}, 1)
	r := rows[0]
	line := fmt.Sprintf("%s  %-14s %-8s %s", r.Time, r.App, r.Status, r.Message)
	if r.IsError {
		line = "! " + line
	}
	return line
}

func init() {
	root.RootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "输出的事件条数, 0表示全部")
	eventsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "持续输出新事件")

	eventsCmd.Example = `  imc-manager events -n 5
  imc-manager events --follow`
}
