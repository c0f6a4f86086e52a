package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"steam-provider/internal/components/db"
	"steam-provider/internal/steam"
	"steam-provider/internal/steam/credential"
	"steam-provider/internal/steam/session"
)

func saveSecureLogin(ctx context.Context, g *globals, login credential.SecureLogin) error {
	return g.qry.SaveCredential(ctx, db.Credential{
		Name:    login.Name(),
		Domain:  steam.StoreDomain,
		Value:   login.Value(),
		Secure:  login.Secure(),
		SavedAt: g.time.Now().Unix(),
	})
}

func login(ctx context.Context, g *globals, site session.Site) (session.Session, error) {
	if g.config.Username == "" || g.config.Password == "" {
		return session.Session{}, errors.New("username and password must be set in the config to log in")
	}
	negotiator := session.NewNegotiator(g.transport, g.tel)
	s, err := session.Create(ctx, negotiator, site, g.config.Username, g.config.Password)
	if err != nil {
		return session.Session{}, err
	}
	if err := saveSecureLogin(ctx, g, s.SecureLogin()); err != nil {
		return session.Session{}, fmt.Errorf("save secure login: %w", err)
	}
	return s, nil
}

// openSession reuses the secure login saved by an earlier login and only
// logs in again when there is none.
func openSession(ctx context.Context, g *globals, site session.Site) (session.Session, error) {
	saved, err := g.qry.GetCredential(ctx, steam.SecureLoginCookie, steam.StoreDomain)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Info("no saved secure login, logging in", "username", g.config.Username)
		return login(ctx, g, site)
	}
	if err != nil {
		return session.Session{}, err
	}

	secureLogin, err := credential.NewSecureLogin(credential.New(saved.Name, saved.Value, saved.Domain, saved.Secure))
	if err != nil {
		return session.Session{}, err
	}
	negotiator := session.NewNegotiator(g.transport, g.tel)
	return session.CreateFromCredential(ctx, negotiator, site, secureLogin)
}
