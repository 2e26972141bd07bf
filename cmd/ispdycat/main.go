// ispdycat is a small command-line client over the spdy package: it
// opens one connection, sends one request, prints the response
// headers and streams the body to stdout. Grounded on cli/cli.go's
// shape (flag parsing, zap.NewDevelopment, SIGINT/SIGTERM handling,
// optional viper config file), trimmed to a single-request demo since
// this library has no engine/worker-pool concept to configure.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chensheng12330/iSPDY/config"
	"github.com/chensheng12330/iSPDY/lib/errutil"
	"github.com/chensheng12330/iSPDY/spdy"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ispdycat [flags] <url>\n"+
			"url is https://host:port/path; fetches it over SPDY and prints the response.\n")
		flag.PrintDefaults()
	}

	var (
		configFile  string
		version     int
		method      string
		dialTimeout time.Duration
		header      headerFlag
	)
	flag.StringVar(&configFile, "config", "", "optional YAML/JSON/TOML file of config.Connection fields, overlaid with flags below")
	flag.IntVar(&version, "version", int(spdy.V3), "SPDY protocol version to request: 2 or 3")
	flag.StringVar(&method, "method", "GET", "request method")
	flag.DurationVar(&dialTimeout, "dial-timeout", 30*time.Second, "dial + TLS handshake timeout")
	flag.Var(&header, "H", "extra request header, \"Name: value\" (repeatable)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	rawURL := flag.Arg(0)

	log, err := zap.NewDevelopment(zap.AddCaller())
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(log)
	zap.RedirectStdLog(log)

	conn := loadConnectionConfig(log, configFile, rawURL, version, dialTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(log, cancel)

	connection, err := conn.Open(ctx, spdy.WithLogger(log))
	if err != nil {
		if errutil.IsNotCtxError(ctx, err) {
			log.Fatal("connect failed", zap.Error(err))
		}
		log.Info("connect canceled", zap.Error(err))
		os.Exit(1)
	}

	done := make(chan struct{})
	req := spdy.NewRequest(method, rawURL, http.Header(header))
	req.SetDelegate(&printingDelegate{log: log, done: done})

	if err := connection.Send(req); err != nil {
		log.Fatal("send failed", zap.Error(err))
	}
	req.End()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// loadConnectionConfig builds a config.Connection, optionally starting
// from a decoded+validated config file and always overlaying the
// endpoint/version/dial-timeout flags on top — flags win, matching
// cli.go's "config file, then flags" precedence for anything it reads
// twice.
func loadConnectionConfig(log *zap.Logger, configFile, rawURL string, version int, dialTimeout time.Duration) config.Connection {
	conn := config.DefaultConnection()
	if configFile != "" {
		v := viper.New()
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatal("config read failed", zap.Error(err))
		}
		if err := config.Decode(v.AllSettings(), &conn); err != nil {
			log.Fatal("config decode failed", zap.Error(err))
		}
	}

	endpoint, secure := endpointFromURL(rawURL)
	conn.Endpoint = endpoint
	conn.Secure = secure
	conn.Version = version
	conn.DialTimeout = dialTimeout

	if err := config.Validate(&conn); err != nil {
		log.Fatal("config validation failed", zap.Error(err))
	}
	return conn
}

func endpointFromURL(rawURL string) (endpoint string, secure bool) {
	rest := rawURL
	secure = true
	if strings.HasPrefix(rest, "https://") {
		rest = rest[len("https://"):]
	} else if strings.HasPrefix(rest, "http://") {
		rest = rest[len("http://"):]
		secure = false
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	if !strings.Contains(rest, ":") {
		if secure {
			rest += ":443"
		} else {
			rest += ":80"
		}
	}
	return rest, secure
}

func handleSignals(log *zap.Logger, interrupt func()) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info("signal received, closing connection", zap.Stringer("signal", sig))
	interrupt()
}

// printingDelegate writes the response to stdout as it arrives and
// closes done once the stream ends, one way or another.
type printingDelegate struct {
	log  *zap.Logger
	done chan struct{}
}

func (d *printingDelegate) OnResponse(headers http.Header) {
	for name, values := range headers {
		fmt.Fprintf(os.Stdout, "%s: %s\n", name, strings.Join(values, ", "))
	}
	fmt.Fprintln(os.Stdout)
}

func (d *printingDelegate) OnData(data []byte) { os.Stdout.Write(data) }

func (d *printingDelegate) OnError(err *spdy.Error) {
	d.log.Error("stream error", zap.Error(err))
}

func (d *printingDelegate) OnEnd() { close(d.done) }

// headerFlag implements flag.Value, collecting repeated -H flags into
// an http.Header.
type headerFlag http.Header

func (h *headerFlag) String() string { return "" }

func (h *headerFlag) Set(value string) error {
	name, val, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("expected \"Name: value\", got %q", value)
	}
	if *h == nil {
		*h = make(headerFlag)
	}
	http.Header(*h).Add(strings.TrimSpace(name), strings.TrimSpace(val))
	return nil
}
