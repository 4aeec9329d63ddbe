// Command gobject exercises the ownership bridge against the
// in-memory object system in objtest. It exists to demo and debug
// bridge behavior: proxy construction, toggle-driven strong
// referencing, signal dispatch, and teardown.
package main

import (
	"fmt"
	"os"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/taskgroup"
	"github.com/danderson/gobject"
	"github.com/danderson/gobject/objtest"
	"github.com/kr/pretty"
	"go.uber.org/zap"
)

var globalArgs struct {
	Verbose bool `flag:"v,Log bridge lifecycle events"`
}

var stressArgs = struct {
	Objects int `flag:"objects,Number of native objects"`
	Workers int `flag:"workers,Concurrent workers per object"`
	Rounds  int `flag:"rounds,Ref/unref rounds per worker"`
}{
	Objects: 8,
	Workers: 4,
	Rounds:  1000,
}

func main() {
	root := &command.C{
		Name:     "gobject",
		Usage:    "command args...",
		SetFlags: command.Flags(flax.MustBind, &globalArgs),
		Commands: []*command.C{
			{
				Name:  "demo",
				Usage: "demo",
				Help: `Walk one object through the bridge lifecycle.

Creates a native object, binds a proxy to it, connects a listener,
emits signals, toggles external ownership to show strong-set
transitions, and finally invalidates the proxy.`,
				Run: command.Adapt(runDemo),
			},
			{
				Name:     "stress",
				Usage:    "stress",
				Help:     "Hammer the bridge with concurrent ref toggles and verify its registries.",
				SetFlags: command.Flags(flax.MustBind, &stressArgs),
				Run:      command.Adapt(runStress),
			},
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}
	command.RunOrFail(root.NewEnv(nil), os.Args[1:])
}

func newBridge(lib gobject.Library) *gobject.Bridge {
	var opts gobject.Options
	if globalArgs.Verbose {
		opts.Logger = zap.Must(zap.NewDevelopment())
	}
	return gobject.New(lib, &opts)
}

type printListener struct{}

func (printListener) HandleSignal(sig *gobject.Signal) bool {
	fmt.Printf("signal %s from %s: %v\n", sig.Name, sig.Sender, sig.Args)
	return true
}

func runDemo(env *command.Env) error {
	lib := objtest.New()
	bridge := newBridge(lib)
	defer bridge.Close()

	h := lib.NewObject(
		gobject.PropertySpec{Name: "name", Kind: gobject.KindString, Writable: true},
		gobject.PropertySpec{Name: "volume", Kind: gobject.KindFloat64, Writable: true},
	)
	fmt.Printf("created native object %s, refcount %d\n", h, lib.RefCount(h))

	obj, err := bridge.Construct(h, false, true)
	if err != nil {
		return fmt.Errorf("constructing proxy: %w", err)
	}
	fmt.Printf("bound %s, refcount %d\n", obj, lib.RefCount(h))

	if err := obj.Set("name", "demo"); err != nil {
		return err
	}
	if err := obj.Set("volume", 0.8); err != nil {
		return err
	}
	name, err := gobject.GetAs[string](obj, "name")
	if err != nil {
		return err
	}
	vol, err := gobject.GetAs[float64](obj, "volume")
	if err != nil {
		return err
	}
	fmt.Printf("properties: name=%q volume=%v\n", name, vol)

	l := printListener{}
	if err := obj.Connect("changed", l); err != nil {
		return err
	}
	if _, err := lib.Emit(h, "changed", "", gobject.StringValue("hello")); err != nil {
		return err
	}

	// Simulate an external native owner appearing and going away.
	if err := lib.TakeRef(h); err != nil {
		return err
	}
	fmt.Printf("external owner took a ref, refcount %d\n", lib.RefCount(h))
	if err := lib.DropRef(h); err != nil {
		return err
	}
	fmt.Printf("external owner dropped its ref, refcount %d\n", lib.RefCount(h))

	if err := obj.Disconnect("changed", l); err != nil {
		return err
	}
	if err := obj.Invalidate(); err != nil {
		return fmt.Errorf("invalidating: %w", err)
	}
	fmt.Printf("invalidated; object alive: %v\n", lib.Alive(h))

	pretty.Println(struct {
		LiveProxies int
		LiveNatives int
	}{len(bridge.Live()), lib.NumObjects()})
	return nil
}

func runStress(env *command.Env) error {
	lib := objtest.New()
	bridge := newBridge(lib)
	defer bridge.Close()

	handles := make([]gobject.Handle, stressArgs.Objects)
	for i := range handles {
		handles[i] = lib.NewObject()
		if _, err := bridge.Construct(handles[i], false, true); err != nil {
			return fmt.Errorf("constructing proxy %d: %w", i, err)
		}
	}

	g, start := taskgroup.New(nil), make(chan struct{})
	for _, h := range handles {
		for range stressArgs.Workers {
			g.Go(func() error {
				<-start
				for range stressArgs.Rounds {
					if err := lib.TakeRef(h); err != nil {
						return err
					}
					if err := lib.DropRef(h); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	close(start)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("stress worker: %w", err)
	}

	for _, h := range handles {
		if got := lib.RefCount(h); got != 1 {
			return fmt.Errorf("object %s: refcount %d after stress, want 1", h, got)
		}
		if _, ok := bridge.Lookup(h); !ok {
			return fmt.Errorf("object %s: proxy lost during stress", h)
		}
	}
	fmt.Printf("ok: %d objects, %d workers each, %d rounds\n",
		stressArgs.Objects, stressArgs.Workers, stressArgs.Rounds)
	return nil
}
