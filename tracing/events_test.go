package tracing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// brokenWriter accepts the first write only.
type brokenWriter struct {
	writes int
}

func (w *brokenWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > 1 {
		return 0, errors.New("disk full")
	}

	return len(p), nil
}

var _ = Describe("Events", func() {
	It("should order the start fields", func() {
		f := BindStart{Name: "Foo"}.Fields()

		Expect(f.Keys()).To(Equal([]string{
			FieldName,
			FieldEntryPoint,
			FieldContextLabel,
			FieldActivityID,
			FieldRelatedActivityID,
		}))
	})

	It("should order the stop fields", func() {
		f := BindStop{Name: "Foo"}.Fields()

		Expect(f.Keys()).To(Equal([]string{
			FieldName,
			FieldEntryPoint,
			FieldSuccess,
			FieldResultPath,
			FieldActivityID,
		}))
	})

	It("should decode what it encodes", func() {
		start := BindStart{
			Name:              "Foo",
			EntryPoint:        EntryPointReflection,
			ContextLabel:      "Default",
			ActivityID:        idOf(2),
			RelatedActivityID: idOf(1),
		}

		decoded, err := BindStartFromFields(start.Fields())
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(start))
	})

	It("should reject malformed fields", func() {
		_, err := BindStopFromFields(Fields{{Key: FieldName, Value: "Foo"}})
		Expect(err).To(MatchError(ErrMissingField))

		f := BindStop{Name: "Foo"}.Fields()
		f[2].Value = "yes"
		_, err = BindStopFromFields(f)
		Expect(err).To(MatchError(ErrFieldType))
	})
})

var _ = Describe("HookSink", func() {
	var sink *HookSink

	BeforeEach(func() {
		sink = NewHookSink("sink")
	})

	It("should have no listener by default", func() {
		Expect(sink.Name()).To(Equal("sink"))
		Expect(sink.IsListenerActive(EventBindStart)).To(BeFalse())
		Expect(sink.IsListenerActive(EventBindStop)).To(BeFalse())
	})

	It("should attach and detach tracers", func() {
		recorder := NewBindRecorder(nil)

		CollectTrace(sink, recorder)
		Expect(sink.IsListenerActive(EventBindStart)).To(BeTrue())
		Expect(sink.IsListenerActive(EventBindStop)).To(BeTrue())
		Expect(func() { CollectTrace(sink, recorder) }).To(Panic())

		StopCollecting(sink, recorder)
		Expect(sink.IsListenerActive(EventBindStart)).To(BeFalse())
	})

	It("should deliver events to the tracers after a failing one", func() {
		CollectTrace(sink, NewJSONTracer(&brokenWriter{}, nil))

		recorder := NewBindRecorder(nil)
		CollectTrace(sink, recorder)

		tracer := MakeBuilder().WithSink(sink).Build()
		_, err := tracer.Bind(tracer.NewThread(), "Foo", nil,
			func() (string, error) { return "/lib/foo.so", nil })

		Expect(err).NotTo(HaveOccurred())
		Expect(recorder.InFlight()).To(BeEmpty())
		Expect(recorder.Completed()).To(HaveLen(1))
		Expect(recorder.Completed()[0].ResultPath).To(Equal("/lib/foo.so"))
		Expect(tracer.Stats().Stopped).To(Equal(uint64(1)))
		Expect(tracer.Stats().Faults).To(Equal(uint64(1)))
	})

	It("should log failing tracers without a fault handler", func() {
		CollectTrace(sink, NewJSONTracer(&brokenWriter{}, nil))

		recorder := NewBindRecorder(nil)
		CollectTrace(sink, recorder)

		sink.Emit(EventBindStart, BindStart{Name: "Foo", ActivityID: idOf(1)}.Fields())
		Expect(func() {
			sink.Emit(EventBindStop, BindStop{Name: "Foo", ActivityID: idOf(1)}.Fields())
		}).NotTo(Panic())

		Expect(recorder.Completed()).To(HaveLen(1))
	})

	It("should decode events for tracers", func() {
		recorder := NewBindRecorder(nil)
		CollectTrace(sink, recorder)

		sink.Emit(EventBindStart, BindStart{Name: "Foo", ActivityID: idOf(1)}.Fields())
		sink.Emit(EventBindStop, BindStop{Name: "Foo", Success: true, ActivityID: idOf(1)}.Fields())
		sink.Emit(EventBindStop, Fields{{Key: FieldName, Value: 3}})

		Expect(recorder.Completed()).To(HaveLen(1))
		Expect(recorder.Mismatches()).To(BeZero())
	})
})
