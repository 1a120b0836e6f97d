package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/storechat/internal/api"
	"github.com/matheus3301/storechat/internal/archive"
	"github.com/matheus3301/storechat/internal/chat"
	"github.com/matheus3301/storechat/internal/window"
)

func parseToggle(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func presence(online bool) string {
	if online {
		return " [online]"
	}
	return ""
}

func formatRoomLine(r api.RoomSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-6s %-20s", r.ID, r.Contact.Name)
	if r.Contact.UnreadCount > 0 {
		fmt.Fprintf(&b, " (%d unread)", r.Contact.UnreadCount)
	}
	if r.Phase == chat.AwaitingReply {
		b.WriteString(" awaiting reply")
	}
	if r.Typing {
		b.WriteString(" typing")
	}
	if r.LastMessage != nil {
		fmt.Fprintf(&b, " | %s", truncate(r.LastMessage.Text, 40))
	}
	return b.String()
}

func formatMessage(m chat.Message) string {
	who := "them"
	if m.Sender == chat.SenderSelf {
		who = "me"
	}
	return fmt.Sprintf("  %s %-4s %s (%s)", m.CreatedAt.Local().Format("15:04:05"), who, m.Text, m.Status)
}

func formatLayout(l window.Layout) string {
	var b strings.Builder
	if l.MainPage {
		b.WriteString("main page: on")
		if l.MainPageRoomID != "" {
			fmt.Fprintf(&b, " (room %s)", l.MainPageRoomID)
		}
		b.WriteString("\n")
	}
	if len(l.Entries) == 0 {
		b.WriteString("no floating windows\n")
		return b.String()
	}
	for _, e := range l.Entries {
		state := "open"
		if e.Minimized {
			state = "minimized"
		}
		marker := " "
		if e.RoomID == l.ActiveRoomID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s slot %d  room %-6s %s\n", marker, e.Slot, e.RoomID, state)
	}
	return b.String()
}

func formatArchived(m archive.Message) string {
	return fmt.Sprintf("%s %s: %s", formatMillis(m.CreatedAt), m.Sender, m.Body)
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("15:04:05")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
