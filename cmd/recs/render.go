package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"recs/internal/format"
	"recs/internal/models"
	"recs/internal/service"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	likedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	unreadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	indent        = lipgloss.NewStyle().PaddingLeft(4)
)

// renderer writes command results in the selected output format.
type renderer struct {
	w      io.Writer
	format outputFormat
	now    func() time.Time
}

// emit encodes v for json and yaml output, and calls table otherwise.
func (r *renderer) emit(v any, table func()) error {
	switch r.format {
	case formatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		table()
		return nil
	}
}

func (r *renderer) line(s string) {
	fmt.Fprintln(r.w, s)
}

func (r *renderer) age(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return format.TimeAgo(t, r.now())
}

func (r *renderer) recLines(rec models.Rec) {
	head := fmt.Sprintf("#%d %s %s", rec.ID, categoryStyle.Render("["+rec.Category+"]"), titleStyle.Render(rec.Title))
	if d := format.Domain(rec.Link); d != "" {
		head += " " + mutedStyle.Render(d)
	}
	r.line(head)

	likes := fmt.Sprintf("♡ %d", rec.LikesCount)
	if rec.IsLiked {
		likes = likedStyle.Render(fmt.Sprintf("♥ %d", rec.LikesCount))
	}
	meta := []string{"@" + rec.Username}
	if age := r.age(rec.CreatedAt); age != "" {
		meta = append(meta, age)
	}
	r.line(indent.Render(mutedStyle.Render(strings.Join(meta, " · ")) + "  " + likes))
	if rec.Description != "" {
		r.line(indent.Render(rec.Description))
	}
}

func (r *renderer) Recs(rows []models.Rec) error {
	return r.emit(rows, func() {
		if len(rows) == 0 {
			r.line(mutedStyle.Render("no recs yet"))
			return
		}
		for _, rec := range rows {
			r.recLines(rec)
		}
	})
}

func (r *renderer) Rec(rec models.Rec) error {
	return r.emit(rec, func() { r.recLines(rec) })
}

func (r *renderer) Detail(d *service.RecDetail) error {
	return r.emit(d, func() {
		r.recLines(d.Rec)
		r.line("")
		r.line(titleStyle.Render(fmt.Sprintf("%d comments", len(d.Comments))))
		for _, c := range d.Comments {
			r.commentLine(c)
		}
	})
}

func (r *renderer) commentLine(c models.Comment) {
	meta := "@" + c.Username
	if age := r.age(c.CreatedAt); age != "" {
		meta += " · " + age
	}
	r.line(mutedStyle.Render(meta) + "  " + c.Content)
}

func (r *renderer) Comment(c models.Comment) error {
	return r.emit(c, func() { r.commentLine(c) })
}

func (r *renderer) userLine(u models.User) {
	line := titleStyle.Render("@"+u.Username) + " " +
		mutedStyle.Render(fmt.Sprintf("%d recs · %d tuned in · %d tuned to", u.RecsCount, u.TunedIn, u.TunedTo))
	if u.IsFollowing != nil {
		if *u.IsFollowing {
			line += " " + likedStyle.Render("tuned in")
		} else {
			line += " " + mutedStyle.Render("not tuned in")
		}
	}
	r.line(line)
}

func (r *renderer) User(u models.User) error {
	return r.emit(u, func() {
		r.userLine(u)
		if u.Bio != "" {
			r.line(indent.Render(u.Bio))
		}
	})
}

func (r *renderer) Users(users []models.User) error {
	return r.emit(users, func() {
		if len(users) == 0 {
			r.line(mutedStyle.Render("no users found"))
			return
		}
		for _, u := range users {
			r.userLine(u)
		}
	})
}

func (r *renderer) Profile(p *service.Profile) error {
	return r.emit(p, func() {
		r.userLine(p.User)
		if p.User.Bio != "" {
			r.line(indent.Render(p.User.Bio))
		}
		r.line("")
		if len(p.Recs) == 0 {
			r.line(mutedStyle.Render("no recs yet"))
		}
		for _, rec := range p.Recs {
			r.recLines(rec)
		}
	})
}

func (r *renderer) Notifications(list []models.Notification) error {
	return r.emit(list, func() {
		if len(list) == 0 {
			r.line(mutedStyle.Render("no notifications"))
			return
		}
		for _, n := range list {
			line := "@" + n.FromUsername + " " + n.Text()
			if n.RecID != nil {
				line += fmt.Sprintf(" #%d", *n.RecID)
			}
			if age := r.age(n.CreatedAt); age != "" {
				line += " " + mutedStyle.Render(age)
			}
			if !n.IsRead {
				line = unreadStyle.Render("•") + " " + line
			} else {
				line = "  " + line
			}
			r.line(line)
		}
	})
}

func (r *renderer) Deleted(id uint) error {
	return r.emit(map[string]uint{"deleted": id}, func() {
		r.line(mutedStyle.Render(fmt.Sprintf("deleted rec #%d", id)))
	})
}
