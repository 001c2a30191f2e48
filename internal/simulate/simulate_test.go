package simulate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctor/internal/adapters/http/api"
	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/config"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/export"
	"github.com/okian/proctor/internal/simulate"
	"github.com/okian/proctor/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func fastConfig(baseURL string) *simulate.Config {
	cfg := simulate.NewConfig()
	cfg.BaseURL = baseURL
	cfg.FaceInterval = 10 * time.Millisecond
	cfg.ObjectInterval = 20 * time.Millisecond
	cfg.LookAwayThreshold = 50 * time.Millisecond
	cfg.NoFaceThreshold = 100 * time.Millisecond
	cfg.FocusDuration = 30 * time.Millisecond
	cfg.Timeout = 2 * time.Second
	return cfg
}

func TestBuildScenario(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		sc := simulate.BuildScenario(simulate.NewConfig())

		Convey("Sustained phases cross their thresholds by one tick", func() {
			So(sc.Phases, ShouldHaveLength, 5)
			So(sc.Phases[0].Ticks, ShouldEqual, 20)
			So(sc.Phases[1].Ticks, ShouldEqual, 51)
			So(sc.Phases[2].Ticks, ShouldEqual, 101)
			So(sc.Phases[2].Faces, ShouldBeEmpty)
			So(sc.Phases[3].Faces, ShouldHaveLength, 2)
			So(sc.Phases[4].Objects, ShouldHaveLength, 1)
			So(sc.Ticks(), ShouldEqual, 174)
		})

		Convey("One event of each scripted kind is expected", func() {
			So(sc.Expected, ShouldResemble, model.Counters{FocusLost: 1, NoFace: 1, MultipleFaces: 1, Phone: 1})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a proctor server with fast cadences", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		cfg := config.New()
		cfg.FaceIntervalMS = 10
		cfg.ObjectIntervalMS = 20
		cfg.LookAwayThresholdMS = 50
		cfg.NoFaceThresholdMS = 100
		cfg.MailboxSize = 256
		svc := service.New(service.WithConfig(cfg))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("The scripted session produces the expected report", func() {
			out := filepath.Join(t.TempDir(), "report.json")
			simCfg := fastConfig(srv.URL)
			simCfg.OutputFile = out

			stats, err := simulate.Run(ctx, simCfg)
			So(err, ShouldBeNil)
			So(stats.Duplicates, ShouldEqual, 1)
			So(stats.Observed, ShouldResemble, stats.Expected)
			So(stats.Score, ShouldEqual, 100-5-10-10-15)
			So(stats.FacePushes, ShouldEqual, 22)

			f, err := os.Open(out)
			So(err, ShouldBeNil)
			defer func() { _ = f.Close() }()
			rep, err := export.ReadReport(f)
			So(err, ShouldBeNil)
			So(rep.SessionID, ShouldEqual, stats.SessionID)
			So(rep.Events, ShouldHaveLength, 4)
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		Convey("The health check fails", func() {
			_, err := simulate.Run(context.Background(), fastConfig(srv.URL))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a zero cadence", t, func() {
		cfg := fastConfig("http://127.0.0.1:0")
		cfg.FaceInterval = 0

		Convey("The run is rejected", func() {
			_, err := simulate.Run(context.Background(), cfg)
			So(errors.Is(err, simulate.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
