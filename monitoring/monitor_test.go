package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bindtrace/activity"
	"github.com/sarchlab/bindtrace/tracing"
)

func idOf(n byte) activity.ID {
	var id activity.ID
	id[15] = n

	return id
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		start  time.Time
		router http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		start = time.Unix(1000, 0)
		m = NewMonitor()
		m.RegisterBindSource(StaticSource{
			{
				ActivityID: idOf(1), Name: "App, Version=1.0", Completed: true,
				Success: true, ResultPath: "/lib/app.so",
				StartTime: start, EndTime: start.Add(4 * time.Millisecond),
				StartSeq: 1, StopSeq: 6,
			},
			{
				ActivityID: idOf(2), RelatedActivityID: idOf(1), Name: "Core",
				Completed: true, StartTime: start, EndTime: start.Add(2 * time.Millisecond),
				StartSeq: 2, StopSeq: 3,
			},
			{
				ActivityID: idOf(3), RelatedActivityID: idOf(1), Name: "Util",
				StartTime: start, StartSeq: 4, StopSeq: ^uint64(0),
			},
		})
		router = m.Router()
	})

	It("should list the endpoints", func() {
		var rsp map[string][]string
		decode(get("/"), &rsp)

		Expect(rsp["endpoints"]).To(ContainElement("/api/forest"))
	})

	It("should list binds", func() {
		var binds []tracing.BindRecord

		decode(get("/api/binds"), &binds)
		Expect(binds).To(HaveLen(3))

		decode(get("/api/binds?name=App"), &binds)
		Expect(binds).To(HaveLen(1))
		Expect(binds[0].ResultPath).To(Equal("/lib/app.so"))

		decode(get("/api/binds?failed=true"), &binds)
		Expect(binds).To(HaveLen(1))
		Expect(binds[0].Name).To(Equal("Core"))

		decode(get("/api/binds?limit=1&offset=2"), &binds)
		Expect(binds).To(HaveLen(1))
		Expect(binds[0].Name).To(Equal("Util"))

		decode(get("/api/binds?offset=10"), &binds)
		Expect(binds).To(BeEmpty())
	})

	It("should reject bad parameters", func() {
		Expect(get("/api/binds?failed=perhaps").Code).To(Equal(http.StatusBadRequest))
		Expect(get("/api/binds?limit=-1").Code).To(Equal(http.StatusBadRequest))
	})

	It("should show a single bind", func() {
		var bind tracing.BindRecord

		decode(get("/api/binds/"+idOf(2).String()), &bind)
		Expect(bind.Name).To(Equal("Core"))

		Expect(get("/api/binds/" + idOf(9).String()).Code).
			To(Equal(http.StatusNotFound))
	})

	It("should list binds in flight", func() {
		var binds []tracing.BindRecord

		decode(get("/api/inflight"), &binds)
		Expect(binds).To(HaveLen(1))
		Expect(binds[0].Name).To(Equal("Util"))
	})

	It("should build the forest", func() {
		var forest []*tracing.BindNode

		decode(get("/api/forest"), &forest)
		Expect(forest).To(HaveLen(1))
		Expect(forest[0].Children).To(HaveLen(2))
	})

	It("should compute latency from the binds", func() {
		var rsp latencyRsp

		decode(get("/api/latency"), &rsp)
		Expect(rsp.Count).To(Equal(uint64(2)))
		Expect(rsp.Succeeded).To(Equal(uint64(1)))
		Expect(rsp.Failed).To(Equal(uint64(1)))
		Expect(rsp.TotalTime).To(Equal(6 * time.Millisecond))
		Expect(rsp.AverageTime).To(Equal(3 * time.Millisecond))
	})

	It("should report latency from a time tracer", func() {
		tt := tracing.NewBindTimeTracer(nil, nil)
		tt.StartBind(tracing.BindStart{Name: "A", ActivityID: idOf(1)})
		tt.StopBind(tracing.BindStop{Name: "A", Success: true, ActivityID: idOf(1)})
		m.RegisterTimeTracer(tt)

		var rsp latencyRsp
		decode(get("/api/latency"), &rsp)
		Expect(rsp.Count).To(Equal(uint64(1)))
		Expect(rsp.Succeeded).To(Equal(uint64(1)))
	})

	It("should serialize the tracer counters", func() {
		sink := tracing.NewHookSink("sink")
		tracing.CollectTrace(sink, tracing.NewBindRecorder(nil))
		tracer := tracing.MakeBuilder().WithSink(sink).Build()
		thread := tracer.NewThread()
		tracer.StartBind(thread, "A", nil).End()
		m.RegisterTracer(tracer)

		rec := get("/api/tracer")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Started"))
	})

	It("should report progress", func() {
		bar := m.CreateProgressBar("load", 3)
		bar.IncrementInProgress(2)
		bar.MoveInProgressToFinished(1)
		bar.MoveInProgressToFailed(1)

		var bars []progressSnapshot
		decode(get("/api/progress"), &bars)
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Finished).To(Equal(uint64(1)))
		Expect(bars[0].Failed).To(Equal(uint64(1)))
		Expect(bars[0].InProgress).To(BeZero())

		m.CompleteProgressBar(bar)
		decode(get("/api/progress"), &bars)
		Expect(bars).To(BeEmpty())
	})

	It("should report resources", func() {
		var rsp resourceRsp

		decode(get("/api/resource"), &rsp)
		Expect(rsp.MemorySize).NotTo(BeZero())
	})

	It("should serve on a random port", func() {
		url, err := m.WithPortNumber(0).StartServer()
		Expect(err).NotTo(HaveOccurred())

		defer m.Shutdown(context.Background())

		rsp, err := http.Get(url + "/api/inflight")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
