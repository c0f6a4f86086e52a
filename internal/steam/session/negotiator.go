// Package session logs into Steam and bundles the resulting credentials
// into sessions usable against the store or the community.
package session

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"steam-provider/internal/components/assert"
	"steam-provider/internal/components/telemetry"
	"steam-provider/internal/steam"
	"steam-provider/internal/steam/credential"
	"steam-provider/internal/steam/transport"

	"github.com/go-resty/resty/v2"
)

const (
	report_negotiator_login         = "negotiator.login"
	report_negotiator_store_session = "negotiator.create-store-session"
)

const (
	stepPublicKey    = "get public key"
	stepBeginSession = "begin auth session"
	stepPollSession  = "poll auth session"
	stepStoreSession = "create store session"
)

// LoginPayload is everything the login handshake hands back.
type LoginPayload struct {
	SteamId      string
	AccountName  string
	ClientId     string
	RequestId    string
	AccessToken  string
	RefreshToken string
}

// Negotiator performs the login handshake and mints store sessions over
// the transport it is given.
type Negotiator struct {
	client *transport.Client
	tel    telemetry.API
}

func NewNegotiator(client *transport.Client, tel telemetry.API) Negotiator {
	assert.NotNil(client)
	assert.NotNil(tel)
	return Negotiator{
		client: client,
		tel:    telemetry.NewScopedAPI("steam_session", tel),
	}
}

type apiResponse[T any] struct {
	Response T `json:"response"`
}

type publicKeyResponse struct {
	Modulus   string `json:"publickey_mod"`
	Exponent  string `json:"publickey_exp"`
	Timestamp string `json:"timestamp"`
}

type beginSessionResponse struct {
	ClientId  string `json:"client_id"`
	RequestId string `json:"request_id"`
	SteamId   string `json:"steamid"`
}

type pollSessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccountName  string `json:"account_name"`
}

func decodeApiResponse[T any](res *resty.Response, out *T) error {
	if err := transport.CheckStatus(res); err != nil {
		return err
	}
	var wrapper apiResponse[T]
	if err := json.Unmarshal(res.Body(), &wrapper); err != nil {
		return steam.NewParseError(steam.ReasonMalformedJson, res.Request.URL, err)
	}
	*out = wrapper.Response
	return nil
}

func parsePublicKey(modulus, exponent string) (*rsa.PublicKey, error) {
	n, ok := new(big.Int).SetString(modulus, 16)
	if !ok {
		return nil, fmt.Errorf("modulus is not hex: %q", modulus)
	}
	e, ok := new(big.Int).SetString(exponent, 16)
	if !ok {
		return nil, fmt.Errorf("exponent is not hex: %q", exponent)
	}
	if !e.IsInt64() || e.Int64() <= 1 || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("exponent out of range: %s", e.String())
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// EncryptPassword encrypts the password with PKCS#1 v1.5 padding and
// returns it base64 encoded, the way the auth service expects it.
func EncryptPassword(key *rsa.PublicKey, password string) (string, error) {
	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, key, []byte(password))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func (n Negotiator) fail(step string, cause error) error {
	err := &steam.LoginError{Step: step, Cause: cause}
	n.tel.ReportBroken(report_negotiator_login, err)
	return err
}

// Login runs the whole handshake once, it does not retry any step.
func (n Negotiator) Login(ctx context.Context, username, password string) (LoginPayload, credential.SecureLogin, error) {
	n.tel.ReportDebug("login", username)

	res, err := n.client.R(ctx).
		SetQueryParam("account_name", username).
		Get(n.client.ApiUrl("/IAuthenticationService/GetPasswordRSAPublicKey/v1"))
	if err != nil {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepPublicKey, err)
	}
	var keyRes publicKeyResponse
	if err := decodeApiResponse(res, &keyRes); err != nil {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepPublicKey, err)
	}
	if keyRes.Modulus == "" || keyRes.Exponent == "" {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepPublicKey, errors.New("public key missing"))
	}
	key, err := parsePublicKey(keyRes.Modulus, keyRes.Exponent)
	if err != nil {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepPublicKey, err)
	}

	encrypted, err := EncryptPassword(key, password)
	if err != nil {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepBeginSession, fmt.Errorf("encrypt password: %w", err))
	}

	res, err = n.client.R(ctx).
		SetFormData(map[string]string{
			"account_name":         username,
			"encrypted_password":   encrypted,
			"encryption_timestamp": keyRes.Timestamp,
			"persistence":          "1",
			"website_id":           "Community",
		}).
		Post(n.client.ApiUrl("/IAuthenticationService/BeginAuthSessionViaCredentials/v1"))
	if err != nil {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepBeginSession, err)
	}
	var beginRes beginSessionResponse
	if err := decodeApiResponse(res, &beginRes); err != nil {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepBeginSession, err)
	}
	if beginRes.ClientId == "" || beginRes.RequestId == "" {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepBeginSession, errors.New("client id missing"))
	}

	res, err = n.client.R(ctx).
		SetFormData(map[string]string{
			"client_id":  beginRes.ClientId,
			"request_id": beginRes.RequestId,
		}).
		Post(n.client.ApiUrl("/IAuthenticationService/PollAuthSessionStatus/v1"))
	if err != nil {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepPollSession, err)
	}
	var pollRes pollSessionResponse
	if err := decodeApiResponse(res, &pollRes); err != nil {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepPollSession, err)
	}
	if pollRes.AccessToken == "" {
		return LoginPayload{}, credential.SecureLogin{}, n.fail(stepPollSession, errors.New("access token missing"))
	}

	payload := LoginPayload{
		SteamId:      beginRes.SteamId,
		AccountName:  pollRes.AccountName,
		ClientId:     beginRes.ClientId,
		RequestId:    beginRes.RequestId,
		AccessToken:  pollRes.AccessToken,
		RefreshToken: pollRes.RefreshToken,
	}
	login := credential.SecureLoginFromToken(payload.SteamId, payload.AccessToken, steam.StoreDomain)
	return payload, login, nil
}

// CreateStoreSession requests the store root and reads the session id the
// store hands out from the cookie store.
func (n Negotiator) CreateStoreSession(ctx context.Context) (credential.StoreSession, error) {
	res, err := n.client.R(ctx).Get(n.client.StoreUrl("/"))
	if err == nil {
		err = transport.CheckStatus(res)
	}
	if err != nil {
		n.tel.ReportBroken(report_negotiator_store_session, err)
		return credential.StoreSession{}, &steam.LoginError{Step: stepStoreSession, Cause: err}
	}

	cookie, found := n.client.Cookies().Lookup(steam.StoreDomain, steam.StoreSessionCookie)
	if !found {
		err := &steam.LoginError{
			Step:  stepStoreSession,
			Cause: fmt.Errorf("%s cookie absent", steam.StoreSessionCookie),
		}
		n.tel.ReportBroken(report_negotiator_store_session, err)
		return credential.StoreSession{}, err
	}
	session, err := credential.NewStoreSession(cookie)
	if err != nil {
		return credential.StoreSession{}, &steam.LoginError{Step: stepStoreSession, Cause: err}
	}
	return session, nil
}
