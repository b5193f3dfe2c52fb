// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Mehulsingh1010/healthcare/api"
	"github.com/Mehulsingh1010/healthcare/cart"
	"github.com/Mehulsingh1010/healthcare/nav"
	"github.com/Mehulsingh1010/healthcare/notify"
	"github.com/Mehulsingh1010/healthcare/session"
	"github.com/Mehulsingh1010/healthcare/storage"
)

const (
	port            = "8080"
	defaultStateDir = ".healthcare"
)

var (
	baseUrl = ""
)

type frontendServer struct {
	session *session.Manager
	cart    *cart.Manager
	catalog *api.CatalogClient
	router  *nav.Memory
}

func main() {
	ctx := context.Background()
	log := logrus.New()
	log.Level = logrus.DebugLevel
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using environment")
	}

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))

	baseUrl = os.Getenv("BASE_URL")

	if os.Getenv("ENABLE_TRACING") == "1" {
		log.Info("Tracing enabled.")
		initTracing(log, ctx)
	} else {
		log.Info("Tracing disabled.")
	}

	if os.Getenv("ENABLE_PROFILER") == "1" {
		log.Info("Profiling enabled.")
		go initProfiling(log, "frontend", "1.0.0")
	} else {
		log.Info("Profiling disabled.")
	}

	srvPort := port
	if os.Getenv("PORT") != "" {
		srvPort = os.Getenv("PORT")
	}
	addr := os.Getenv("LISTEN_ADDR")

	var authSvcAddr, cartSvcAddr, catalogSvcAddr string
	mustMapEnv(&authSvcAddr, "AUTH_SERVICE_ADDR")
	mustMapEnv(&cartSvcAddr, "CART_SERVICE_ADDR")
	mustMapEnv(&catalogSvcAddr, "PRODUCT_CATALOG_SERVICE_ADDR")

	// If API_GATEWAY_ADDR is set, route all backend calls through the gateway
	if gw := os.Getenv("API_GATEWAY_ADDR"); gw != "" {
		authSvcAddr = gw
		cartSvcAddr = gw
		catalogSvcAddr = gw
		log.Infof("Using API Gateway at %s for all backend calls", gw)
	}

	stateDir := os.Getenv("CLIENT_STATE_DIR")
	if stateDir == "" {
		stateDir = defaultStateDir
	}
	store, err := storage.Open(filepath.Join(stateDir, "state.json"))
	if err != nil {
		log.Fatalf("failed to open client state: %v", err)
	}

	notifier := notify.NewLog(log)
	router := nav.NewMemory()

	authClient := api.NewAuthClient(authSvcAddr, log)
	cartClient := api.NewCartClient(cartSvcAddr, log, func() string {
		token, _ := store.Get(storage.KeyToken)
		return token
	})
	catalogClient := api.NewCatalogClient(catalogSvcAddr, log)

	sess := session.NewManager(store, authClient, notifier, router, log)
	crt := cart.NewManager(cartClient, store, sess, notifier, router, log)
	sess.StartExpiryWatcher(ctx)

	svc := &frontendServer{
		session: sess,
		cart:    crt,
		catalog: catalogClient,
		router:  router,
	}

	r := mux.NewRouter()
	r.HandleFunc(baseUrl+"/", svc.homeHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/product/{id}", svc.productHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/search", svc.searchHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/cart", svc.viewCartHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(baseUrl+"/cart", svc.addToCartHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/update", svc.updateCartItemHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/remove", svc.removeFromCartHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/cart/empty", svc.emptyCartHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/login", svc.loginSubmitHandler).Methods(http.MethodPost)
	r.HandleFunc(baseUrl+"/logout", svc.logoutHandler).Methods(http.MethodGet)
	r.HandleFunc(baseUrl+"/session", svc.sessionHandler).Methods(http.MethodGet)
	r.HandleFunc(baseUrl+"/robots.txt", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "User-agent: *\nDisallow: /") })
	r.HandleFunc(baseUrl+"/_healthz", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "ok") })

	var handler http.Handler = r
	handler = &logHandler{log: log, next: handler}     // add logging
	handler = ensureRequestID(handler)                 // add request ID
	handler = otelhttp.NewHandler(handler, "frontend") // add OTel tracing

	// Re-derive whatever session survives on disk before serving. The cart
	// manager is already subscribed, so a restored session also restores the
	// cart and consumes any pending add-to-cart intent.
	if sess.ValidateToken() {
		log.WithField("email", sess.CurrentUser().Email).Info("restored session from stored token")
	}

	log.Infof("starting server on %s:%s", addr, srvPort)
	log.Fatal(http.ListenAndServe(addr+":"+srvPort, handler))
}

func initTracing(log logrus.FieldLogger, ctx context.Context) (*sdktrace.TracerProvider, error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	log.Info("Tracing provider initialized (no exporter configured)")
	return tp, nil
}

func initProfiling(log logrus.FieldLogger, service, version string) {
	for i := 1; i <= 3; i++ {
		log = log.WithField("retry", i)
		if err := profiler.Start(profiler.Config{
			Service:        service,
			ServiceVersion: version,
			// ProjectID must be set if not running on GCP.
			// ProjectID: "my-project",
		}); err != nil {
			log.Warnf("warn: failed to start profiler: %+v", err)
		} else {
			log.Info("started Stackdriver profiler")
			return
		}
		d := time.Second * 10 * time.Duration(i)
		log.Debugf("sleeping %v to retry initializing Stackdriver profiler", d)
		time.Sleep(d)
	}
	log.Warn("warning: could not initialize Stackdriver profiler after retrying, giving up")
}

func mustMapEnv(target *string, envKey string) {
	v := os.Getenv(envKey)
	if v == "" {
		panic(fmt.Sprintf("environment variable %q not set", envKey))
	}
	*target = v
}
