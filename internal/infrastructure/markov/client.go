package markov

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/inventory-cost-etl/internal/application/etl"
	"github.com/jhoicas/inventory-cost-etl/internal/domain"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
	"github.com/jhoicas/inventory-cost-etl/pkg/logger"
)

var _ etl.Extractor = (*Client)(nil)

var tracer = otel.Tracer("inventory-cost-etl/infrastructure/markov")

const (
	loginPath     = "/Identity/Account/Login"
	logoutPath    = "/Identity/Account/Logout"
	dashboardPath = "/api/dashboard/data/DashboardItemGetAction"
	tokenField    = "__RequestVerificationToken"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// Config credenciales y endpoints del dashboard. Se pasa explícitamente; no hay estado global.
type Config struct {
	BaseURL     string
	ReturnURL   string
	Company     string
	Email       string
	Password    string
	DashboardID string
	ItemID      string
	Timeout     time.Duration
}

// Client extractor del grid de valoración de inventario del dashboard Markov.
type Client struct {
	cfg Config
	log *logger.Logger
}

// NewClient construye el extractor. Cada Extract abre su propia sesión.
func NewClient(cfg Config, log *logger.Logger) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{cfg: cfg, log: log}
}

// Extract inicia sesión, descarga el grid completo, lo decodifica y cierra la sesión.
// Devuelve domain.ErrAuthentication si las credenciales son rechazadas y domain.ErrRetrieval
// ante cualquier otro fallo (red, timeout, status no 2xx, cambio de formato).
func (c *Client) Extract(ctx context.Context) ([]entity.RawRow, error) {
	ctx, span := tracer.Start(ctx, "markov:Extract")
	defer span.End()

	session, err := c.newSession()
	if err != nil {
		span.SetStatus(codes.Error, "failed to create session")
		return nil, fmt.Errorf("%w: crear sesión: %w", domain.ErrRetrieval, err)
	}
	defer c.logout(ctx, session)

	if err := c.login(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return nil, err
	}

	body, err := c.fetchDashboard(ctx, session)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch dashboard")
		return nil, err
	}

	rows, err := DecodeDashboard(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode dashboard")
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

func (c *Client) newSession() (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := resty.New()
	client.SetBaseURL(c.cfg.BaseURL)
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(c.cfg.Timeout)
	// Las redirecciones se inspeccionan a mano: el destino indica si el login fue aceptado.
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	return client, nil
}

func (c *Client) login(ctx context.Context, client *resty.Client) error {
	ctx, span := tracer.Start(ctx, "markov:login")
	defer span.End()

	res, err := client.R().
		SetContext(ctx).
		SetQueryParam("ReturnUrl", c.cfg.ReturnURL).
		Get(loginPath)
	if err != nil {
		return fmt.Errorf("%w: obtener formulario de login: %w", domain.ErrRetrieval, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: formulario de login respondió %d", domain.ErrRetrieval, res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("%w: parsear formulario de login: %w", domain.ErrRetrieval, err)
	}
	token := doc.Find(fmt.Sprintf("input[name=%q]", tokenField)).AttrOr("value", "")
	if token == "" {
		return fmt.Errorf("%w: no se encontró %s en el formulario de login", domain.ErrRetrieval, tokenField)
	}

	res, err = client.R().
		SetContext(ctx).
		SetQueryParam("ReturnUrl", c.cfg.ReturnURL).
		SetFormData(map[string]string{
			"Input.Company":  c.cfg.Company,
			"Input.Email":    c.cfg.Email,
			"Input.Password": c.cfg.Password,
			tokenField:       token,
		}).
		Post(loginPath)
	if err != nil {
		return fmt.Errorf("%w: enviar login: %w", domain.ErrRetrieval, err)
	}

	switch status := res.StatusCode(); {
	case isRedirect(status):
		if isLoginLocation(res.Header().Get("Location")) {
			return fmt.Errorf("%w: login redirigido de vuelta al formulario", domain.ErrAuthentication)
		}
		return nil
	case status == http.StatusOK:
		// Identity vuelve a renderizar el formulario con el mensaje de error.
		if hasLoginForm(res.Body()) {
			return fmt.Errorf("%w: el dashboard rechazó el usuario %s", domain.ErrAuthentication, c.cfg.Email)
		}
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: login respondió %d", domain.ErrAuthentication, status)
	default:
		return fmt.Errorf("%w: login respondió %d", domain.ErrRetrieval, status)
	}
}

func (c *Client) fetchDashboard(ctx context.Context, client *resty.Client) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "markov:fetchDashboard")
	defer span.End()

	res, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"dashboardId": c.cfg.DashboardID,
			"itemId":      c.cfg.ItemID,
		}).
		Get(dashboardPath)
	if err != nil {
		return nil, fmt.Errorf("%w: obtener dashboard: %w", domain.ErrRetrieval, err)
	}

	status := res.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden,
		isRedirect(status) && isLoginLocation(res.Header().Get("Location")):
		return nil, fmt.Errorf("%w: sesión no autorizada para el dashboard (%d)", domain.ErrAuthentication, status)
	case !res.IsSuccess():
		return nil, fmt.Errorf("%w: dashboard respondió %d", domain.ErrRetrieval, status)
	}
	return res.Body(), nil
}

// logout cierra la sesión siempre, incluso si el contexto de la corrida ya fue cancelado.
func (c *Client) logout(ctx context.Context, client *resty.Client) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := client.R().SetContext(ctx).Get(logoutPath); err != nil {
		c.log.Debug().Err(err).Msg("logout del dashboard falló")
	}
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

func isLoginLocation(location string) bool {
	return strings.Contains(strings.ToLower(location), strings.ToLower(loginPath))
}

func hasLoginForm(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return doc.Find(`input[name="Input.Password"]`).Length() > 0
}
