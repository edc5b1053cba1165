package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testArgs struct {
	StandardArgs
	Value int
}

func copyArgs(p *testArgs) *testArgs { return &testArgs{Value: p.Value} }

// callLog collects listener labels in call order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func recordAs(log *callLog, label string) Listener[*testArgs] {
	return func(context.Context, any, *testArgs) { log.add(label) }
}

func TestEvent_DispatchesInPriorityOrder(t *testing.T) {
	ev := New[*testArgs]("ordered")
	log := &callLog{}

	ev.MustRegister(recordAs(log, "highest"), WithPriority(PriorityHighest))
	ev.MustRegister(recordAs(log, "lowest"), WithPriority(PriorityLowest))
	ev.MustRegister(recordAs(log, "normal-1"))
	ev.MustRegister(recordAs(log, "monitor"), WithPriority(PriorityMonitor))
	ev.MustRegister(recordAs(log, "normal-2"), WithPriority(PriorityNormal))
	ev.MustRegister(recordAs(log, "custom"), WithPriority(PriorityNormal+5))

	require.NoError(t, ev.Raise(context.Background(), nil, &testArgs{}))

	assert.Equal(t,
		[]string{"lowest", "normal-1", "normal-2", "custom", "highest", "monitor"},
		log.get(),
	)
}

func TestEvent_ListenersReportsDispatchOrder(t *testing.T) {
	ev := New[*testArgs]("listing")
	ev.MustRegister(recordAs(&callLog{}, ""), WithPriority(PriorityHigh), WithLabel("b"))
	ev.MustRegister(recordAs(&callLog{}, ""), WithPriority(PriorityLow), WithLabel("a"), IgnoreCancelled())

	infos := ev.Listeners()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Label)
	assert.Equal(t, PriorityLow, infos[0].Priority)
	assert.True(t, infos[0].IgnoreCancelled)
	assert.Equal(t, "b", infos[1].Label)
}

func TestEvent_RegisterRejectsBadInput(t *testing.T) {
	ev := New[*testArgs]("bad")

	_, err := ev.Register(nil)
	assert.Error(t, err)

	_, err = ev.Register(recordAs(&callLog{}, "x"), WithKey([]string{"not", "comparable"}))
	assert.Error(t, err)

	type boxed struct{ v any }
	_, err = ev.Register(recordAs(&callLog{}, "x"), WithKey(boxed{v: []int{1}}))
	assert.Error(t, err, "interface field holding a slice")
	assert.Equal(t, 0, ev.ListenerCount())
}

func TestEvent_DeregisterKeyWithInterfaceFields(t *testing.T) {
	type boxed struct{ v any }
	ev := New[*testArgs]("boxed")
	ev.MustRegister(recordAs(&callLog{}, "x"), WithKey(boxed{v: 1}))

	assert.NotPanics(t, func() {
		assert.Equal(t, 0, ev.DeregisterKey(boxed{v: []int{1}}))
	})
	assert.Equal(t, 1, ev.DeregisterKey(boxed{v: 1}))
	assert.Equal(t, 0, ev.ListenerCount())
}

func TestEvent_Deregister(t *testing.T) {
	ev := New[*testArgs]("dereg")
	other := New[*testArgs]("other")
	log := &callLog{}

	keep := ev.MustRegister(recordAs(log, "keep"))
	drop := ev.MustRegister(recordAs(log, "drop"))
	ev.MustRegister(recordAs(log, "keyed-1"), WithKey("plugin"))
	ev.MustRegister(recordAs(log, "keyed-2"), WithKey("plugin"))
	ev.MustRegister(recordAs(log, "other-key"), WithKey(42))

	assert.True(t, ev.Deregister(drop))
	assert.False(t, ev.Deregister(drop), "second deregister is a no-op")
	assert.False(t, other.Deregister(keep), "registration belongs to a different event")
	assert.Equal(t, 2, ev.DeregisterKey("plugin"))
	assert.Equal(t, 0, ev.DeregisterKey("missing"))
	assert.Equal(t, 0, ev.DeregisterKey([]int{1}))

	require.NoError(t, ev.Raise(context.Background(), nil, &testArgs{}))
	assert.Equal(t, []string{"keep", "other-key"}, log.get())
}

func TestEvent_MergesDependentListenersByPriority(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")
	log := &callLog{}

	root.MustRegister(recordAs(log, "root-normal"))
	root.MustRegister(recordAs(log, "root-high"), WithPriority(PriorityHigh))
	dep.MustRegister(recordAs(log, "dep-normal"))
	dep.MustRegister(recordAs(log, "dep-low"), WithPriority(PriorityLow))
	require.NoError(t, AddDependent(root, dep, copyArgs))

	require.NoError(t, root.Raise(context.Background(), nil, &testArgs{}))

	// Equal priorities: the root's listeners go first.
	assert.Equal(t, []string{"dep-low", "root-normal", "dep-normal", "root-high"}, log.get())
	assert.Equal(t, []string{"dep"}, root.Dependents())
}

func TestEvent_DependentReceivesConvertedArgs(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")

	var got *testArgs
	dep.MustRegister(func(_ context.Context, _ any, a *testArgs) { got = a })
	require.NoError(t, AddDependent(root, dep, func(p *testArgs) *testArgs {
		return &testArgs{Value: p.Value * 10}
	}))

	args := &testArgs{Value: 4}
	require.NoError(t, root.Raise(context.Background(), "sender", args))

	require.NotNil(t, got)
	assert.Equal(t, 40, got.Value)
	assert.Same(t, args, got.Parent())
	require.Len(t, args.Dependents(), 1)
	assert.Same(t, got, args.Dependents()[0])
	assert.Equal(t, args.RaiseID(), got.RaiseID())
	assert.Equal(t, "dep", got.EventName())
	assert.Equal(t, "root", args.EventName())
}

func TestEvent_SenderIsPassedThrough(t *testing.T) {
	ev := New[*testArgs]("sender")
	var seen any
	ev.MustRegister(func(_ context.Context, sender any, _ *testArgs) { seen = sender })

	require.NoError(t, ev.Raise(context.Background(), "me", &testArgs{}))
	assert.Equal(t, "me", seen)
}

func TestEvent_MonitorSeesImmutableArgs(t *testing.T) {
	ev := New[*testArgs]("monitor")

	var normalErr, monitorErr error
	var mutableAtMonitor bool
	ev.MustRegister(func(_ context.Context, _ any, a *testArgs) {
		normalErr = a.SetCancelled(true)
	})
	ev.MustRegister(func(_ context.Context, _ any, a *testArgs) {
		mutableAtMonitor = a.IsMutable()
		monitorErr = a.SetCancelled(false)
	}, WithPriority(PriorityMonitor))

	args := &testArgs{}
	require.NoError(t, ev.Raise(context.Background(), nil, args))

	assert.NoError(t, normalErr)
	assert.False(t, mutableAtMonitor)
	assert.ErrorIs(t, monitorErr, ErrArgsImmutable)
	assert.True(t, args.IsCancelled(), "monitor must not be able to uncancel")
}

func TestEvent_ArgsImmutableAfterPreEvent(t *testing.T) {
	ev := New[*testArgs]("frozen")
	args := &testArgs{}

	require.NoError(t, args.SetCancelled(true), "unused args accept changes")
	require.NoError(t, ev.Raise(context.Background(), nil, args))

	assert.False(t, args.IsMutable())
	assert.ErrorIs(t, args.SetCancelled(false), ErrArgsImmutable)
	assert.True(t, args.IsCancelled())
}

func TestEvent_PostListenersRunInPostPhase(t *testing.T) {
	ev := New[*testArgs]("phased")
	log := &callLog{}

	ev.MustRegister(recordAs(log, "post"), WithPriority(PriorityPost))
	ev.MustRegister(recordAs(log, "normal"))
	ev.MustRegister(recordAs(log, "after-post"), WithPriority(PriorityPost+1))

	args := &testArgs{}
	require.NoError(t, ev.Raise(context.Background(), nil, args))
	assert.Equal(t, []string{"normal"}, log.get())

	require.NoError(t, ev.RaisePost(context.Background(), nil, args))
	assert.Equal(t, []string{"normal", "post", "after-post"}, log.get())
}

func TestEvent_PostPhaseCoversDependents(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")
	log := &callLog{}

	root.MustRegister(recordAs(log, "root-post"), WithPriority(PriorityPost))
	dep.MustRegister(recordAs(log, "dep-post"), WithPriority(PriorityPost))
	dep.MustRegister(recordAs(log, "dep-pre"))
	require.NoError(t, AddDependent(root, dep, copyArgs))

	require.NoError(t, root.RaiseAll(context.Background(), nil, &testArgs{}))
	assert.Equal(t, []string{"dep-pre", "root-post", "dep-post"}, log.get())
}

func TestEvent_Lifecycle(t *testing.T) {
	ev := New[*testArgs]("life")
	args := &testArgs{}

	var during UsageState
	ev.MustRegister(func(_ context.Context, _ any, a *testArgs) { during = a.State() })
	var duringPost UsageState
	ev.MustRegister(func(_ context.Context, _ any, a *testArgs) { duringPost = a.State() }, WithPriority(PriorityPost))

	assert.Equal(t, Unused, args.State())

	err := ev.RaisePost(context.Background(), nil, args)
	assert.ErrorIs(t, err, ErrInvalidState, "post before pre")

	require.NoError(t, ev.Raise(context.Background(), nil, args))
	assert.Equal(t, UsingPreEvent, during)
	assert.Equal(t, UsedPreEvent, args.State())

	assert.ErrorIs(t, ev.Raise(context.Background(), nil, args), ErrArgsAlreadyUsed)

	require.NoError(t, ev.RaisePost(context.Background(), nil, args))
	assert.Equal(t, UsingPostEvent, duringPost)
	assert.Equal(t, UsedPostEvent, args.State())

	assert.ErrorIs(t, ev.RaisePost(context.Background(), nil, args), ErrInvalidState)
}

func TestEvent_RaisePostOnWrongEvent(t *testing.T) {
	a := New[*testArgs]("a")
	b := New[*testArgs]("b")
	args := &testArgs{}

	require.NoError(t, a.Raise(context.Background(), nil, args))
	assert.ErrorIs(t, b.RaisePost(context.Background(), nil, args), ErrInvalidState)
	assert.Equal(t, UsedPreEvent, args.State(), "failed post must not advance state")
}

func TestEvent_RaisePostOnDependentArgs(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")

	var depArgs *testArgs
	dep.MustRegister(func(_ context.Context, _ any, a *testArgs) { depArgs = a })
	require.NoError(t, AddDependent(root, dep, copyArgs))
	require.NoError(t, root.Raise(context.Background(), nil, &testArgs{}))

	require.NotNil(t, depArgs)
	assert.ErrorIs(t, dep.RaisePost(context.Background(), nil, depArgs), ErrNotGroupRoot)
}

func TestEvent_NilArgs(t *testing.T) {
	ev := New[*testArgs]("nil")

	assert.ErrorIs(t, ev.Raise(context.Background(), nil, nil), ErrNilArgs)
	assert.ErrorIs(t, ev.RaisePost(context.Background(), nil, nil), ErrNilArgs)
}

func TestEvent_SharedCancellation(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")

	dep.MustRegister(func(_ context.Context, _ any, a *testArgs) {
		require.NoError(t, a.SetCancelled(true))
	})
	require.NoError(t, AddDependent(root, dep, copyArgs, WithCancellation(SharedCancellation)))

	args := &testArgs{}
	require.NoError(t, root.Raise(context.Background(), nil, args))

	require.Len(t, args.Dependents(), 1)
	child := args.Dependents()[0]
	assert.True(t, child.IsCancelled())
	assert.True(t, args.IsCancelled(), "shared cancel reaches the parent")
	assert.True(t, args.SharesCancellationWith(child))
}

func TestEvent_SharedCancellationIsTransitive(t *testing.T) {
	a := New[*testArgs]("a")
	b := New[*testArgs]("b")
	c := New[*testArgs]("c")

	a.MustRegister(func(_ context.Context, _ any, args *testArgs) {
		require.NoError(t, args.SetCancelled(true))
	})
	require.NoError(t, AddDependent(a, b, copyArgs))
	require.NoError(t, AddDependent(b, c, copyArgs))

	args := &testArgs{}
	require.NoError(t, a.Raise(context.Background(), nil, args))

	grandchild := args.Dependents()[0].Dependents()[0]
	assert.True(t, grandchild.IsCancelled())
	assert.True(t, args.SharesCancellationWith(grandchild))
}

func TestEvent_UnsharedCancellation(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")

	dep.MustRegister(func(_ context.Context, _ any, a *testArgs) {
		require.NoError(t, a.SetCancelled(true))
	})
	require.NoError(t, AddDependent(root, dep, copyArgs, WithCancellation(UnsharedCancellation)))

	args := &testArgs{}
	require.NoError(t, root.Raise(context.Background(), nil, args))

	child := args.Dependents()[0]
	assert.True(t, child.IsCancelled())
	assert.False(t, args.IsCancelled())
	assert.False(t, args.SharesCancellationWith(child))
}

func TestEvent_PreCancelledDependentCarriesIntoSharedFlag(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")
	require.NoError(t, AddDependent(root, dep, func(p *testArgs) *testArgs {
		c := &testArgs{}
		_ = c.SetCancelled(true)
		return c
	}))

	args := &testArgs{}
	require.NoError(t, root.Raise(context.Background(), nil, args))
	assert.True(t, args.IsCancelled())
}

func TestEvent_IgnoreCancelled(t *testing.T) {
	ev := New[*testArgs]("ignore")
	log := &callLog{}

	ev.MustRegister(func(_ context.Context, _ any, a *testArgs) {
		log.add("canceller")
		_ = a.SetCancelled(true)
	}, WithPriority(PriorityLow))
	ev.MustRegister(recordAs(log, "skipped"), IgnoreCancelled())
	ev.MustRegister(recordAs(log, "always"))

	require.NoError(t, ev.Raise(context.Background(), nil, &testArgs{}))
	assert.Equal(t, []string{"canceller", "always"}, log.get())
}

func TestEvent_ListenerPanicIsRecovered(t *testing.T) {
	ev := New[*testArgs]("panicky")
	log := &callLog{}

	ev.MustRegister(func(context.Context, any, *testArgs) { panic("boom") }, WithLabel("bad"))
	ev.MustRegister(recordAs(log, "after"), WithPriority(PriorityHigh))

	args := &testArgs{}
	err := ev.Raise(context.Background(), nil, args)

	var pe *ListenerPanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad", pe.Listener)
	assert.Equal(t, "boom", pe.Value)
	assert.Equal(t, []string{"after"}, log.get())
	assert.Equal(t, UsedPreEvent, args.State())
}

func TestEvent_ListenerPanicWithErrorUnwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	ev := New[*testArgs]("panic-err")
	ev.MustRegister(func(context.Context, any, *testArgs) { panic(sentinel) })

	err := ev.Raise(context.Background(), nil, &testArgs{})
	assert.ErrorIs(t, err, sentinel)
}

func TestEvent_RaiseAllRunsPostAfterListenerPanic(t *testing.T) {
	ev := New[*testArgs]("all")
	log := &callLog{}
	ev.MustRegister(func(context.Context, any, *testArgs) { panic("pre") })
	ev.MustRegister(recordAs(log, "post"), WithPriority(PriorityPost))

	args := &testArgs{}
	err := ev.RaiseAll(context.Background(), nil, args)

	require.Error(t, err)
	assert.Equal(t, []string{"post"}, log.get())
	assert.Equal(t, UsedPostEvent, args.State())
}

func TestEvent_ContextCancelStopsDispatch(t *testing.T) {
	ev := New[*testArgs]("ctx")
	log := &callLog{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ev.MustRegister(func(context.Context, any, *testArgs) {
		log.add("first")
		cancel()
	}, WithPriority(PriorityLow))
	ev.MustRegister(recordAs(log, "second"))
	ev.MustRegister(recordAs(log, "post"), WithPriority(PriorityPost))

	args := &testArgs{}
	err := ev.RaiseAll(ctx, nil, args)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, log.get())
	assert.Equal(t, UsedPreEvent, args.State(), "post phase does not run after cancellation")
}

func TestEvent_CycleIsSkipped(t *testing.T) {
	a := New[*testArgs]("a")
	b := New[*testArgs]("b")
	log := &callLog{}

	a.MustRegister(recordAs(log, "a"))
	b.MustRegister(recordAs(log, "b"))
	require.NoError(t, AddDependent(a, b, copyArgs))
	require.NoError(t, AddDependent(b, a, copyArgs))

	args := &testArgs{}
	require.NoError(t, a.Raise(context.Background(), nil, args))

	assert.Equal(t, []string{"a", "b"}, log.get())
	require.Len(t, args.Dependents(), 1)
	assert.Empty(t, args.Dependents()[0].Dependents())
}

func TestEvent_SelfDependencyIsSkipped(t *testing.T) {
	a := New[*testArgs]("self")
	log := &callLog{}
	a.MustRegister(recordAs(log, "self"))
	require.NoError(t, AddDependent(a, a, copyArgs))

	require.NoError(t, a.Raise(context.Background(), nil, &testArgs{}))
	assert.Equal(t, []string{"self"}, log.get())
}

func TestEvent_DiamondRaisesSharedChildTwice(t *testing.T) {
	top := New[*testArgs]("top")
	left := New[*testArgs]("left")
	right := New[*testArgs]("right")
	bottom := New[*testArgs]("bottom")

	count := 0
	bottom.MustRegister(func(context.Context, any, *testArgs) { count++ })
	require.NoError(t, AddDependent(top, left, copyArgs))
	require.NoError(t, AddDependent(top, right, copyArgs))
	require.NoError(t, AddDependent(left, bottom, copyArgs))
	require.NoError(t, AddDependent(right, bottom, copyArgs))

	require.NoError(t, top.Raise(context.Background(), nil, &testArgs{}))
	assert.Equal(t, 2, count, "bottom is reached on two separate paths")
}

func TestEvent_DepthExceeded(t *testing.T) {
	a := New[*testArgs]("a", WithMaxDepth(1))
	b := New[*testArgs]("b")
	c := New[*testArgs]("c")
	log := &callLog{}
	a.MustRegister(recordAs(log, "a"))
	require.NoError(t, AddDependent(a, b, copyArgs))
	require.NoError(t, AddDependent(b, c, copyArgs))

	args := &testArgs{}
	err := a.Raise(context.Background(), nil, args)

	require.Error(t, err)
	assert.True(t, IsDepthError(err))
	assert.Empty(t, log.get(), "no listener runs when the group is rejected")
	assert.Equal(t, Unused, args.State(), "rejected args stay reusable")
}

func TestEvent_QuotaExceeded(t *testing.T) {
	root := New[*testArgs]("root", WithMaxMembers(3))
	for _, name := range []string{"d1", "d2", "d3"} {
		require.NoError(t, AddDependent(root, New[*testArgs](name), copyArgs))
	}

	err := root.Raise(context.Background(), nil, &testArgs{})
	assert.True(t, IsQuotaError(err))
	assert.False(t, IsCycleError(err))
}

func TestEvent_ConverterFailuresSkipDependent(t *testing.T) {
	root := New[*testArgs]("root")
	nilDep := New[*testArgs]("nil-dep")
	panicDep := New[*testArgs]("panic-dep")
	usedDep := New[*testArgs]("used-dep")
	okDep := New[*testArgs]("ok-dep")
	log := &callLog{}

	for _, ev := range []*Event[*testArgs]{nilDep, panicDep, usedDep, okDep} {
		ev.MustRegister(recordAs(log, ev.Name()))
	}

	used := &testArgs{}
	require.NoError(t, New[*testArgs]("elsewhere").Raise(context.Background(), nil, used))

	require.NoError(t, AddDependent(root, nilDep, func(*testArgs) *testArgs { return nil }))
	require.NoError(t, AddDependent(root, panicDep, func(*testArgs) *testArgs { panic("convert") }))
	require.NoError(t, AddDependent(root, usedDep, func(*testArgs) *testArgs { return used }))
	require.NoError(t, AddDependent(root, okDep, copyArgs))

	require.NoError(t, root.Raise(context.Background(), nil, &testArgs{}))
	assert.Equal(t, []string{"ok-dep"}, log.get())
}

func TestEvent_AddDependentValidation(t *testing.T) {
	ev := New[*testArgs]("v")
	assert.Error(t, AddDependent(ev, ev, nil))
	assert.Error(t, AddDependent[*testArgs, *testArgs](nil, ev, copyArgs))
}

func TestEvent_RemoveDependent(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")
	keep := New[*testArgs]("keep")
	require.NoError(t, AddDependent(root, dep, copyArgs))
	require.NoError(t, AddDependent(root, keep, copyArgs))
	require.NoError(t, AddDependent(root, dep, copyArgs))

	assert.True(t, root.RemoveDependent(dep))
	assert.False(t, root.RemoveDependent(dep))
	assert.False(t, root.RemoveDependent(nil))
	assert.Equal(t, []string{"keep"}, root.Dependents())
}

func TestEvent_DifferentArgsTypes(t *testing.T) {
	type otherArgs struct {
		StandardArgs
		Label string
	}

	root := New[*testArgs]("root")
	dep := New[*otherArgs]("dep")

	var label string
	dep.MustRegister(func(_ context.Context, _ any, a *otherArgs) { label = a.Label })
	require.NoError(t, AddDependent(root, dep, func(p *testArgs) *otherArgs {
		return &otherArgs{Label: "value-" + string(rune('0'+p.Value))}
	}))

	require.NoError(t, root.Raise(context.Background(), nil, &testArgs{Value: 7}))
	assert.Equal(t, "value-7", label)
}

func TestEvent_RegistrationDuringRaiseAppliesNextTime(t *testing.T) {
	ev := New[*testArgs]("snapshot")
	log := &callLog{}

	ev.MustRegister(func(context.Context, any, *testArgs) {
		log.add("first")
		ev.MustRegister(recordAs(log, "late"), WithPriority(PriorityHighest))
	}, WithPriority(PriorityLow), WithKey("registrar"))

	require.NoError(t, ev.Raise(context.Background(), nil, &testArgs{}))
	assert.Equal(t, []string{"first"}, log.get())

	ev.DeregisterKey("registrar")
	require.NoError(t, ev.Raise(context.Background(), nil, &testArgs{}))
	assert.Equal(t, []string{"first", "late"}, log.get())
}

func TestEvent_ConcurrentRaises(t *testing.T) {
	root := New[*testArgs]("root")
	dep := New[*testArgs]("dep")

	var (
		mu    sync.Mutex
		total int
	)
	dep.MustRegister(func(_ context.Context, _ any, a *testArgs) {
		mu.Lock()
		total += a.Value
		mu.Unlock()
	})
	require.NoError(t, AddDependent(root, dep, copyArgs))

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			assert.NoError(t, root.RaiseAll(context.Background(), nil, &testArgs{Value: v}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50*51/2, total)
}

func TestEvent_SameArgsRaisedConcurrentlyOnlyOnce(t *testing.T) {
	ev := New[*testArgs]("once")
	var (
		mu    sync.Mutex
		calls int
	)
	ev.MustRegister(func(context.Context, any, *testArgs) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	args := &testArgs{}
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ev.Raise(context.Background(), nil, args)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrArgsAlreadyUsed)
			failures++
		}
	}
	assert.Equal(t, len(errs)-1, failures)
	assert.Equal(t, 1, calls)
}
