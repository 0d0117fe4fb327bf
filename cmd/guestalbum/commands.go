package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/pflag"

	guestalbum "github.com/goliatone/go-guestalbum"
)

type command struct {
	name    string
	summary string
	// session commands re-validate the stored token before running.
	session bool
	flags   func(*pflag.FlagSet)
	run     func(ctx context.Context, a *app, fs *pflag.FlagSet) error
}

var commands = map[string]command{}

func register(c command) {
	commands[c.name] = c
}

func init() {
	register(command{
		name:    "login",
		summary: "log in with email and password",
		session: true,
		flags: func(fs *pflag.FlagSet) {
			fs.String("email", "", "account email")
			fs.String("password", "", "account password")
		},
		run: runLogin,
	})
	register(command{
		name:    "register",
		summary: "create an account and log in",
		session: true,
		flags: func(fs *pflag.FlagSet) {
			fs.String("email", "", "account email")
			fs.String("username", "", "username, defaults to the email local part")
			fs.String("first-name", "", "first name")
			fs.String("last-name", "", "last name")
			fs.String("phone", "", "phone number")
			fs.String("password", "", "password")
			fs.String("password-confirm", "", "password confirmation, defaults to --password")
		},
		run: runRegister,
	})
	register(command{
		name:    "logout",
		summary: "end the session and forget the stored token",
		session: true,
		run:     runLogout,
	})
	register(command{
		name:    "whoami",
		summary: "show the current user",
		session: true,
		run:     runWhoami,
	})
	register(command{
		name:    "profile",
		summary: "update profile fields",
		session: true,
		flags: func(fs *pflag.FlagSet) {
			fs.String("first-name", "", "first name")
			fs.String("last-name", "", "last name")
			fs.String("email", "", "email")
			fs.String("phone", "", "phone number")
			fs.String("bio", "", "bio")
			fs.String("website", "", "website")
			fs.String("location", "", "location")
			fs.String("birth-date", "", "birth date, YYYY-MM-DD")
		},
		run: runProfile,
	})
	register(command{
		name:    "password",
		summary: "change the account password",
		session: true,
		flags: func(fs *pflag.FlagSet) {
			fs.String("old", "", "current password")
			fs.String("new", "", "new password")
			fs.String("confirm", "", "new password confirmation, defaults to --new")
		},
		run: runPassword,
	})
	register(command{
		name:    "event-types",
		summary: "list event types",
		session: true,
		run:     runEventTypes,
	})
	register(command{
		name:    "create-album",
		summary: "create an album and print its share link",
		session: true,
		flags: func(fs *pflag.FlagSet) {
			fs.String("title", "", "album title")
			fs.String("description", "", "description")
			fs.Int64("event-type", 0, "event type id")
			fs.String("date", "", "event date, YYYY-MM-DD")
			fs.String("location", "", "event location")
			fs.String("privacy", guestalbum.PrivacyPublic, "public, private or password_protected")
		},
		run: runCreateAlbum,
	})
	register(command{
		name:    "uploads",
		summary: "list the uploads of an owned album",
		session: true,
		run:     runUploads,
	})
	register(command{
		name:    "album",
		summary: "resolve an access code",
		run:     runAlbum,
	})
	register(command{
		name:    "upload",
		summary: "upload files to an album by access code",
		flags: func(fs *pflag.FlagSet) {
			fs.String("code", "", "album access code")
			fs.String("name", "", "your name, optional")
			fs.String("message", "", "message for the host, optional")
		},
		run: runUpload,
	})
}

func (a *app) print(v any) {
	fmt.Fprintln(a.out, print.MaybePrettyJSON(v))
}

func flagString(fs *pflag.FlagSet, name string) string {
	v, _ := fs.GetString(name)
	return v
}

func runLogin(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if err := a.manager.Login(ctx, flagString(fs, "email"), flagString(fs, "password")); err != nil {
		return err
	}
	return printSession(a)
}

func runRegister(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	confirm := flagString(fs, "password-confirm")
	if !fs.Changed("password-confirm") {
		confirm = flagString(fs, "password")
	}

	err := a.manager.Register(ctx, guestalbum.Registration{
		Username:        flagString(fs, "username"),
		Email:           flagString(fs, "email"),
		FirstName:       flagString(fs, "first-name"),
		LastName:        flagString(fs, "last-name"),
		Phone:           flagString(fs, "phone"),
		Password:        flagString(fs, "password"),
		PasswordConfirm: confirm,
	})
	if err != nil {
		return err
	}
	return printSession(a)
}

func runLogout(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	a.manager.Logout(ctx)
	a.print(map[string]any{"status": a.manager.State().Status()})
	return nil
}

func runWhoami(_ context.Context, a *app, _ *pflag.FlagSet) error {
	if err := a.manager.Authorized(); err != nil {
		return err
	}
	return printSession(a)
}

func printSession(a *app) error {
	state := a.manager.State()
	out := map[string]any{
		"status": state.Status(),
		"user":   state.User,
	}
	if state.User != nil {
		out["display_name"] = state.User.DisplayName()
	}
	if info, err := guestalbum.InspectToken(state.Token); err == nil && info.ExpiresAt != nil {
		out["token_expires_at"] = info.ExpiresAt.Format(time.RFC3339)
		out["token_expired"] = info.Expired(time.Now())
	}
	a.print(out)
	return nil
}

func runProfile(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if err := a.manager.Authorized(); err != nil {
		return err
	}

	var patch guestalbum.ProfilePatch
	set := func(dst **string, name string) {
		if fs.Changed(name) {
			v := flagString(fs, name)
			*dst = &v
		}
	}
	set(&patch.FirstName, "first-name")
	set(&patch.LastName, "last-name")
	set(&patch.Email, "email")
	set(&patch.Phone, "phone")
	set(&patch.Bio, "bio")
	set(&patch.Website, "website")
	set(&patch.Location, "location")
	set(&patch.BirthDate, "birth-date")

	if patch.Empty() {
		return errors.New("nothing to update")
	}
	if err := a.manager.UpdateProfile(ctx, patch); err != nil {
		return err
	}
	return printSession(a)
}

func runPassword(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if err := a.manager.Authorized(); err != nil {
		return err
	}

	confirm := flagString(fs, "confirm")
	if !fs.Changed("confirm") {
		confirm = flagString(fs, "new")
	}

	err := a.manager.ChangePassword(ctx, guestalbum.PasswordChange{
		OldPassword:        flagString(fs, "old"),
		NewPassword:        flagString(fs, "new"),
		NewPasswordConfirm: confirm,
	})
	if err != nil {
		return err
	}
	a.print(map[string]any{"status": "password changed"})
	return nil
}

func runEventTypes(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	types, err := a.owner.EventTypes(ctx)
	if err != nil {
		return err
	}
	a.print(types)
	return nil
}

func runCreateAlbum(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	eventType, _ := fs.GetInt64("event-type")
	album, err := a.owner.CreateAlbum(ctx, guestalbum.AlbumDraft{
		Title:         flagString(fs, "title"),
		Description:   flagString(fs, "description"),
		EventTypeID:   eventType,
		EventDate:     flagString(fs, "date"),
		EventLocation: flagString(fs, "location"),
		Privacy:       flagString(fs, "privacy"),
	})
	if err != nil {
		return err
	}

	capability := guestalbum.Capability{AccessCode: album.AccessCode, AlbumID: album.ID}
	a.print(map[string]any{
		"album":     album,
		"share_url": capability.ShareURL(a.cfg.Share.Origin),
	})
	return nil
}

func runUploads(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errors.New("usage: uploads <album-id>")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid album id %q", fs.Arg(0))
	}

	uploads, err := a.owner.Uploads(ctx, id)
	if err != nil {
		return err
	}

	pending := 0
	for _, u := range uploads {
		if u.Pending() {
			pending++
		}
	}
	a.print(map[string]any{
		"total":   len(uploads),
		"pending": pending,
		"uploads": uploads,
	})
	return nil
}

func runAlbum(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if fs.NArg() != 1 {
		return errors.New("usage: album <access-code>")
	}

	res, err := a.resolver.ResolveAlbum(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	a.print(map[string]any{
		"album":     res.Album,
		"share_url": res.Capability.ShareURL(a.cfg.Share.Origin),
	})
	return nil
}

type uploadResult struct {
	File   string `json:"file"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func runUpload(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if fs.NArg() == 0 {
		return errors.New("usage: upload --code CODE [--name NAME] [--message TEXT] FILE...")
	}

	res, err := a.resolver.ResolveAlbum(ctx, flagString(fs, "code"))
	if err != nil {
		return err
	}
	code := res.Capability.AccessCode

	var (
		mu      sync.Mutex
		results []uploadResult
		failed  bool
	)
	report := func(r uploadResult) {
		mu.Lock()
		results = append(results, r)
		if r.Status != "submitted" {
			failed = true
		}
		mu.Unlock()
	}

	workers := pool.New().WithMaxGoroutines(a.cfg.Upload.Concurrency)
	for _, path := range fs.Args() {
		candidate, closer, err := openCandidate(path)
		if err != nil {
			report(uploadResult{File: path, Status: "error", Error: err.Error()})
			continue
		}
		candidate.DisplayName = flagString(fs, "name")
		candidate.Message = flagString(fs, "message")

		admitted, err := a.gate.Admit(candidate)
		if err != nil {
			_ = closer.Close()
			a.submitter.Reject(ctx, code, candidate, err)
			report(uploadResult{File: path, Status: "rejected", Error: guestalbum.ErrorMessage(err, err.Error())})
			continue
		}

		workers.Go(func() {
			defer closer.Close()
			if _, err := a.submitter.Submit(ctx, code, admitted); err != nil {
				report(uploadResult{File: path, Status: "failed", Error: guestalbum.ErrorMessage(err, err.Error())})
				return
			}
			report(uploadResult{File: path, Status: "submitted"})
		})
	}
	workers.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	a.print(map[string]any{
		"album":   res.Album.Title,
		"results": results,
	})

	if failed {
		return errors.New("some files were not uploaded")
	}
	return nil
}

// openCandidate opens path and declares its MIME type from its first bytes.
func openCandidate(path string) (guestalbum.Candidate, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return guestalbum.Candidate{}, nil, err
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return guestalbum.Candidate{}, nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return guestalbum.Candidate{}, nil, err
	}

	name := filepath.Base(path)
	return guestalbum.Candidate{
		Filename:    name,
		ContentType: guestalbum.DetectContentType(name, head[:n]),
		Body:        f,
	}, f, nil
}
