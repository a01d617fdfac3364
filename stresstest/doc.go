// Package stresstest is the programmatic API of strest: write a lifecycle in
// Go and run it from go test or from your own binary.
//
// # Under go test
//
//	func TestLogin(t *testing.T) {
//	    suite := &stresstest.Suite{
//	        Spec: &stresstest.Spec{
//	            Name:   "login",
//	            Repeat: 3,
//	            Sequences: []stresstest.Sequence{
//	                stresstest.NewSequence(
//	                    stresstest.RunInstances(2),
//	                    stresstest.WaitFor(500*time.Millisecond),
//	                    stresstest.RunParallel(10),
//	                ),
//	            },
//	        },
//	        Factory: func(index int) *stresstest.Hooks {
//	            return &stresstest.Hooks{
//	                Scenario: func(ctx context.Context, t *stresstest.Timer, _ *stresstest.PhaseResult) (any, error) {
//	                    t.Start()
//	                    defer t.Stop()
//	                    return login(ctx, index)
//	                },
//	            }
//	        },
//	    }
//	    stresstest.RunT(t, time.Minute, suite)
//	}
//
// Every sequence and repetition becomes a subtest titled
// "[ #<rep> ][ <label> ] - <name>".
//
// # From a binary
//
//	summary, err := stresstest.Execute(ctx, stresstest.Options{
//	    Reporters: []string{"json", "html"},
//	    ReportDir: "./reports",
//	}, suite)
//
// # Built-in lifecycles
//
// The http and sleep lifecycles used by configuration files are available as
// HTTP and Sleep.
package stresstest
