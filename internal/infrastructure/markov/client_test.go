package markov_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-cost-etl/internal/domain"
	"github.com/jhoicas/inventory-cost-etl/internal/infrastructure/markov"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dashboard simulado
// ──────────────────────────────────────────────────────────────────────────────

const (
	basePath     = "/MCS_Dashboard"
	sessionValue = "ok"
	loginForm    = `<html><body><form method="post">
		<input name="Input.Company"/><input name="Input.Email"/><input name="Input.Password" type="password"/>
		<input name="__RequestVerificationToken" type="hidden" value="tok-123"/>
	</form></body></html>`
	dashboardJSON = `{
		"ItemData": {"DataStorageDTO": {
			"EncodeMaps": {
				"D0": ["BOX-1", "CAN-2"],
				"D1": ["2024-01-05T00:00:00"],
				"D2": [4, 100314],
				"D3": [10, 5.5],
				"D4": ["20.00", "11"]
			},
			"Slices": [{"Data": {
				"[0,0,0,0,0]": {},
				"[1,0,1,1,1]": {},
				"[-1,-1,-1,-1,-1]": {},
				"Total": {}
			}}]
		}},
		"ViewModel": {"Columns": [
			{"Caption": "ItemCode", "DataId": "D0"},
			{"Caption": "Date", "DataId": "D1"},
			{"Caption": "Owner", "DataId": "D2"},
			{"Caption": "Qty", "DataId": "D3"},
			{"Caption": "ActualValue", "DataId": "D4"}
		]}
	}`
)

type fakeDashboard struct {
	password       string
	dashboardCode  int           // status a devolver en el endpoint de datos (0 = 200)
	dashboardDelay time.Duration // para simular un origen colgado
	omitToken      bool
	logouts        atomic.Int32

	mu       sync.Mutex
	lastForm map[string]string
}

func (f *fakeDashboard) form(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm[field]
}

func (f *fakeDashboard) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(basePath+"/Identity/Account/Login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/100-TEST", r.URL.Query().Get("ReturnUrl"))
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "antiforgery", Value: "af", Path: "/"})
			if f.omitToken {
				fmt.Fprint(w, `<html><body><form></form></body></html>`)
				return
			}
			fmt.Fprint(w, loginForm)
		case http.MethodPost:
			if !assert.NoError(t, r.ParseForm()) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			f.lastForm = map[string]string{}
			for k := range r.PostForm {
				f.lastForm[k] = r.PostForm.Get(k)
			}
			f.mu.Unlock()
			if c, err := r.Cookie("antiforgery"); err != nil || c.Value != "af" ||
				r.PostForm.Get("__RequestVerificationToken") != "tok-123" ||
				r.PostForm.Get("Input.Password") != f.password {
				// Identity vuelve a mostrar el formulario con el error
				fmt.Fprint(w, loginForm)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: ".AspNetCore.Identity.Application", Value: sessionValue, Path: "/"})
			http.Redirect(w, r, basePath+"/100-TEST", http.StatusFound)
		}
	})
	mux.HandleFunc(basePath+"/api/dashboard/data/DashboardItemGetAction", func(w http.ResponseWriter, r *http.Request) {
		if f.dashboardDelay > 0 {
			time.Sleep(f.dashboardDelay)
		}
		if c, err := r.Cookie(".AspNetCore.Identity.Application"); err != nil || c.Value != sessionValue {
			http.Redirect(w, r, basePath+"/Identity/Account/Login?ReturnUrl=%2F", http.StatusFound)
			return
		}
		assert.Equal(t, "100-Test", r.URL.Query().Get("dashboardId"))
		assert.Equal(t, "gridDashboardItem6", r.URL.Query().Get("itemId"))
		if f.dashboardCode != 0 {
			w.WriteHeader(f.dashboardCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, dashboardJSON)
	})
	mux.HandleFunc(basePath+"/Identity/Account/Logout", func(w http.ResponseWriter, r *http.Request) {
		f.logouts.Add(1)
		http.Redirect(w, r, basePath+"/", http.StatusFound)
	})
	return mux
}

func newClient(srv *httptest.Server, password string, timeout time.Duration) *markov.Client {
	return markov.NewClient(markov.Config{
		BaseURL:     srv.URL + basePath + "/",
		ReturnURL:   "/100-TEST",
		Company:     "acme",
		Email:       "ops@acme.test",
		Password:    password,
		DashboardID: "100-Test",
		ItemID:      "gridDashboardItem6",
		Timeout:     timeout,
	}, nil)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestExtract_LoginYDescarga(t *testing.T) {
	dash := &fakeDashboard{password: "s3cret"}
	srv := httptest.NewServer(dash.handler(t))
	defer srv.Close()

	rows, err := newClient(srv, "s3cret", 5*time.Second).Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2, "la fila de totales y la clave no-arreglo se ignoran")

	assert.Equal(t, "BOX-1", rows[0]["ItemCode"])
	assert.Equal(t, "2024-01-05T00:00:00", rows[0]["Date"])
	assert.Equal(t, "4", rows[0]["Owner"])
	assert.Equal(t, "10", rows[0]["Qty"])
	assert.Equal(t, "20.00", rows[0]["ActualValue"])

	assert.Equal(t, "CAN-2", rows[1]["ItemCode"])
	assert.Equal(t, "100314", rows[1]["Owner"])
	assert.Equal(t, "5.5", rows[1]["Qty"])

	assert.Equal(t, "acme", dash.form("Input.Company"))
	assert.Equal(t, "ops@acme.test", dash.form("Input.Email"))
	assert.EqualValues(t, 1, dash.logouts.Load(), "la sesión se cierra al terminar")
}

func TestExtract_CredencialesRechazadas(t *testing.T) {
	dash := &fakeDashboard{password: "s3cret"}
	srv := httptest.NewServer(dash.handler(t))
	defer srv.Close()

	rows, err := newClient(srv, "wrong", 5*time.Second).Extract(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.NotErrorIs(t, err, domain.ErrRetrieval)
	assert.Nil(t, rows)
	assert.EqualValues(t, 1, dash.logouts.Load(), "logout también ante error")
}

func TestExtract_SinTokenDeVerificacion(t *testing.T) {
	dash := &fakeDashboard{password: "s3cret", omitToken: true}
	srv := httptest.NewServer(dash.handler(t))
	defer srv.Close()

	_, err := newClient(srv, "s3cret", 5*time.Second).Extract(context.Background())
	assert.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestExtract_DashboardNo2xx(t *testing.T) {
	dash := &fakeDashboard{password: "s3cret", dashboardCode: http.StatusInternalServerError}
	srv := httptest.NewServer(dash.handler(t))
	defer srv.Close()

	_, err := newClient(srv, "s3cret", 5*time.Second).Extract(context.Background())
	assert.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestExtract_DashboardNoAutorizado(t *testing.T) {
	dash := &fakeDashboard{password: "s3cret", dashboardCode: http.StatusUnauthorized}
	srv := httptest.NewServer(dash.handler(t))
	defer srv.Close()

	_, err := newClient(srv, "s3cret", 5*time.Second).Extract(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestExtract_TimeoutAcotado(t *testing.T) {
	dash := &fakeDashboard{password: "s3cret", dashboardDelay: 500 * time.Millisecond}
	srv := httptest.NewServer(dash.handler(t))
	defer srv.Close()

	started := time.Now()
	_, err := newClient(srv, "s3cret", 100*time.Millisecond).Extract(context.Background())
	assert.ErrorIs(t, err, domain.ErrRetrieval)
	assert.Less(t, time.Since(started), 2*time.Second)
}
