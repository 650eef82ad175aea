package tracing

import (
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bindtrace/activity"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Tracer", func() {
	var (
		mockCtrl   *gomock.Controller
		sink       *MockSink
		tracker    *MockActivityTracker
		violations []error
		tracer     *Tracer
		thread     *Thread
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sink = NewMockSink(mockCtrl)
		tracker = NewMockActivityTracker(mockCtrl)
		violations = nil

		tracer = MakeBuilder().
			WithSink(sink).
			WithTracker(tracker).
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
			WithViolationHandler(func(err error) {
				violations = append(violations, err)
			}).
			Build()
		thread = tracer.NewThread()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic when built without a sink", func() {
		Expect(func() { MakeBuilder().Build() }).To(Panic())
	})

	It("should trace a single successful bind", func() {
		id := idOf(1)

		gomock.InOrder(
			sink.EXPECT().IsListenerActive(EventBindStart).Return(true),
			tracker.EXPECT().
				OnStart(DefaultProviderName, DefaultActivityName, activity.Null).
				Return(true, id, activity.Null),
			sink.EXPECT().Emit(EventBindStart, BindStart{
				Name:         "Foo, Version=1.0",
				EntryPoint:   EntryPointLoad,
				ContextLabel: "Default",
				ActivityID:   id,
			}.Fields()),
			sink.EXPECT().IsListenerActive(EventBindStop).Return(true),
			tracker.EXPECT().
				OnStop(DefaultProviderName, DefaultActivityName, id).
				Return(true, id),
			sink.EXPECT().Emit(EventBindStop, BindStop{
				Name:       "Foo, Version=1.0",
				EntryPoint: EntryPointLoad,
				Success:    true,
				ResultPath: "/lib/foo.so",
				ActivityID: id,
			}.Fields()),
		)

		ep := thread.EnterEntryPoint(EntryPointLoad)
		scope := tracer.StartBind(thread, "Foo, Version=1.0", StringLabel("Default"))

		Expect(scope.Traced()).To(BeTrue())
		Expect(thread.Depth()).To(Equal(uint32(1)))
		Expect(thread.RootID()).To(Equal(id))

		scope.SetResult(Succeeded("/lib/foo.so"))
		scope.End()
		ep.Exit()

		Expect(thread.Depth()).To(BeZero())
		Expect(thread.RootID()).To(Equal(activity.Null))
		Expect(tracer.Stats()).To(Equal(Stats{Started: 1, Stopped: 1}))
	})

	It("should do nothing when start events have no listener", func() {
		label := NewMockBindLabel(mockCtrl)

		sink.EXPECT().IsListenerActive(EventBindStart).Return(false).AnyTimes()

		scope := tracer.StartBind(thread, "Foo", label)
		Expect(scope).To(BeNil())

		scope.SetResult(Succeeded("/lib/foo.so"))
		scope.SetResult(Failed())
		scope.End()

		Expect(thread.Depth()).To(BeZero())
		Expect(tracer.IsEnabled()).To(BeFalse())
		Expect(violations).To(BeEmpty())
	})

	It("should not trace when the tracker declines", func() {
		sink.EXPECT().IsListenerActive(EventBindStart).Return(true)
		tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), activity.Null).
			Return(false, activity.Null, activity.Null)

		scope := tracer.StartBind(thread, "Foo", StringLabel("Default"))
		scope.End()

		Expect(scope).To(BeNil())
		Expect(thread.Depth()).To(BeZero())
		Expect(tracer.Stats().Declined).To(Equal(uint64(1)))
	})

	It("should keep depth balanced when stop events have no listener", func() {
		id := idOf(1)

		sink.EXPECT().IsListenerActive(EventBindStart).Return(true)
		tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(true, id, activity.Null)
		sink.EXPECT().Emit(EventBindStart, gomock.Any())
		sink.EXPECT().IsListenerActive(EventBindStop).Return(false)
		tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), id).
			Return(true, id)

		scope := tracer.StartBind(thread, "Foo", nil)
		scope.End()

		Expect(thread.Depth()).To(BeZero())
		Expect(tracer.Stats().Stopped).To(BeZero())
	})

	It("should suppress the stop event when the tracker closes nothing", func() {
		id := idOf(1)

		sink.EXPECT().IsListenerActive(EventBindStart).Return(true)
		tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(true, id, activity.Null)
		sink.EXPECT().Emit(EventBindStart, gomock.Any())
		sink.EXPECT().IsListenerActive(EventBindStop).Return(true)
		tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), id).
			Return(false, activity.Null)

		scope := tracer.StartBind(thread, "Foo", nil)
		scope.End()

		Expect(thread.Depth()).To(BeZero())
		Expect(thread.RootID()).To(Equal(activity.Null))
	})

	It("should chain nested binds to the root activity", func() {
		outer, inner := idOf(1), idOf(2)

		sink.EXPECT().IsListenerActive(gomock.Any()).Return(true).AnyTimes()
		gomock.InOrder(
			tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), activity.Null).
				Return(true, outer, activity.Null),
			tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), outer).
				Return(true, inner, outer),
			tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), inner).
				Return(true, inner),
			tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), outer).
				Return(true, outer),
		)
		sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(4)

		a := tracer.StartBind(thread, "A", nil)
		b := tracer.StartBind(thread, "B", nil)

		Expect(b.RelatedActivityID()).To(Equal(outer))
		Expect(thread.Depth()).To(Equal(uint32(2)))
		Expect(thread.RootID()).To(Equal(outer))

		b.End()
		Expect(thread.RootID()).To(Equal(outer))

		a.End()
		Expect(thread.Depth()).To(BeZero())
	})

	It("should report a failed bind when the result is never set", func() {
		id := idOf(1)

		sink.EXPECT().IsListenerActive(gomock.Any()).Return(true).AnyTimes()
		tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(true, id, activity.Null)
		tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), id).
			Return(true, id)
		sink.EXPECT().Emit(EventBindStart, gomock.Any())
		sink.EXPECT().Emit(EventBindStop, BindStop{
			Name:       "Foo",
			ActivityID: id,
		}.Fields())

		Expect(func() {
			tracer.Bind(thread, "Foo", nil, func() (string, error) {
				panic("loader crashed")
			})
		}).To(PanicWith("loader crashed"))

		Expect(thread.Depth()).To(BeZero())
	})

	It("should not keep the path of a failed bind", func() {
		id := idOf(1)

		sink.EXPECT().IsListenerActive(gomock.Any()).Return(true).AnyTimes()
		tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(true, id, activity.Null)
		tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), id).
			Return(true, id)
		sink.EXPECT().Emit(EventBindStart, gomock.Any())
		sink.EXPECT().Emit(EventBindStop, BindStop{
			Name:       "Foo",
			ActivityID: id,
		}.Fields())

		errNotFound := errors.New("not found")
		path, err := tracer.Bind(thread, "Foo", nil, func() (string, error) {
			return "/partial", errNotFound
		})

		Expect(err).To(MatchError(errNotFound))
		Expect(path).To(Equal("/partial"))
	})

	It("should render the label only when tracing", func() {
		label := NewMockBindLabel(mockCtrl)
		id := idOf(1)

		sink.EXPECT().IsListenerActive(gomock.Any()).Return(true).AnyTimes()
		tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(true, id, activity.Null)
		tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), id).
			Return(true, id)
		label.EXPECT().DisplayName().Return(`"plugin" loader.Context #1`)
		sink.EXPECT().Emit(EventBindStart, BindStart{
			Name:         "Foo",
			ContextLabel: `"plugin" loader.Context #1`,
			ActivityID:   id,
		}.Fields())
		sink.EXPECT().Emit(EventBindStop, gomock.Any())

		tracer.StartBind(thread, "Foo", label).End()
	})

	Context("when collaborators fail", func() {
		It("should treat a failing gate as disabled", func() {
			sink.EXPECT().IsListenerActive(EventBindStart).
				DoAndReturn(func(EventKind) bool { panic("gate") })

			Expect(tracer.StartBind(thread, "Foo", nil)).To(BeNil())
			Expect(tracer.Stats().Faults).To(Equal(uint64(1)))
		})

		It("should not trace when the tracker fails to start", func() {
			sink.EXPECT().IsListenerActive(EventBindStart).Return(true)
			tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(string, string, activity.ID) (bool, activity.ID, activity.ID) {
					panic("tracker")
				})

			Expect(tracer.StartBind(thread, "Foo", nil)).To(BeNil())
			Expect(thread.Depth()).To(BeZero())
			Expect(tracer.Stats().Faults).To(Equal(uint64(1)))
		})

		It("should swallow failures of the sink and the label", func() {
			label := NewMockBindLabel(mockCtrl)
			id := idOf(1)

			sink.EXPECT().IsListenerActive(gomock.Any()).Return(true).AnyTimes()
			tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(true, id, activity.Null)
			tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), id).
				DoAndReturn(func(string, string, activity.ID) (bool, activity.ID) {
					panic("tracker")
				})
			label.EXPECT().DisplayName().DoAndReturn(func() string {
				panic("label")
			})
			sink.EXPECT().Emit(EventBindStart, BindStart{
				Name:       "Foo",
				ActivityID: id,
			}.Fields()).Do(func(EventKind, Fields) { panic("sink") })

			path, err := tracer.Bind(thread, "Foo", label,
				func() (string, error) { return "/lib/foo.so", nil })

			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("/lib/foo.so"))
			Expect(thread.Depth()).To(BeZero())
			Expect(tracer.Stats().Faults).To(Equal(uint64(3)))
			Expect(tracer.Faulted()).To(BeFalse())
		})
	})

	Context("on consistency violations", func() {
		BeforeEach(func() {
			n := byte(0)

			sink.EXPECT().IsListenerActive(gomock.Any()).Return(true).AnyTimes()
			sink.EXPECT().Emit(gomock.Any(), gomock.Any()).AnyTimes()
			tracker.EXPECT().OnStart(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_, _ string, parent activity.ID) (bool, activity.ID, activity.ID) {
					n++
					return true, idOf(n), parent
				}).AnyTimes()
			tracker.EXPECT().OnStop(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_, _ string, id activity.ID) (bool, activity.ID) {
					return true, id
				}).AnyTimes()
		})

		It("should stop tracing when a result is set twice", func() {
			scope := tracer.StartBind(thread, "Foo", nil)
			scope.SetResult(Succeeded("/a"))
			scope.SetResult(Succeeded("/b"))
			scope.End()

			Expect(violations).To(HaveLen(1))
			Expect(violations[0]).To(MatchError(ErrResultAlreadySet))
			Expect(tracer.Faulted()).To(BeTrue())
			Expect(tracer.IsEnabled()).To(BeFalse())
			Expect(tracer.StartBind(thread, "Bar", nil)).To(BeNil())
			Expect(thread.Depth()).To(BeZero())
		})

		It("should report scopes ending out of order", func() {
			outer := tracer.StartBind(thread, "A", nil)
			inner := tracer.StartBind(thread, "B", nil)

			outer.End()
			inner.End()

			Expect(violations).NotTo(BeEmpty())
			Expect(violations[0]).To(MatchError(ErrScopeOrder))
			Expect(tracer.Stats().Violations).To(BeNumerically(">=", 1))
		})

		It("should report a corrupted entry point", func() {
			outer := thread.EnterEntryPoint(EntryPointLoad)
			thread.EnterEntryPoint(EntryPointJIT)
			outer.Exit()

			Expect(violations).To(HaveLen(1))
			Expect(violations[0]).To(MatchError(ErrEntryPointCorrupted))
			Expect(tracer.Faulted()).To(BeTrue())
		})
	})

	It("should treat a nil tracer as disabled", func() {
		var t *Tracer

		Expect(t.IsEnabled()).To(BeFalse())
		Expect(t.StartBind(NewThread(), "Foo", nil)).To(BeNil())
		Expect(t.Stats()).To(Equal(Stats{}))

		path, err := t.Bind(NewThread(), "Foo", nil,
			func() (string, error) { return "/lib/foo.so", nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/lib/foo.so"))
	})

	It("should not panic on violations of a nil tracer thread", func() {
		var t *Tracer
		thread := t.NewThread()

		outer := thread.EnterEntryPoint(EntryPointLoad)
		inner := thread.EnterEntryPoint(EntryPointJIT)

		Expect(outer.Exit).NotTo(Panic())
		Expect(inner.Exit).NotTo(Panic())
	})
})
