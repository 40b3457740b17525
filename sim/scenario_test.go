package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	sc, err := Parse("min.yaml", []byte(`
threads:
  - {name: a, priority: 3, script: ["yield"]}
main: ["start a 10ms"]
`))
	require.NoError(t, err)
	assert.Equal(t, 16, sc.Kernel.CoopPriorities)
	assert.Equal(t, 15, sc.Kernel.PreemptPriorities)
	assert.Equal(t, int64(100), sc.Kernel.TicksPerSecond)
	assert.Equal(t, DefaultStackSize, sc.Threads[0].Stack)
	assert.True(t, sc.Threads[0].Autostarts())
	assert.Equal(t, 2*DefaultStackSize, sc.StackUsage())
	require.Len(t, sc.mainCommands, 1)
	assert.Equal(t, Command{Name: "start", Args: []string{"a", "10ms"}, Text: "start a 10ms", Path: "main[0]"}, sc.mainCommands[0])
}

func TestLoad(t *testing.T) {
	sc, err := Load("testdata/pingpong.yaml")
	require.NoError(t, err)
	assert.Equal(t, "testdata/pingpong.yaml", sc.File)
	assert.Equal(t, Duration(20*time.Millisecond), sc.Kernel.TimeSlice.Slice)
	assert.Equal(t, Size(8192), sc.Memory)
	assert.Equal(t, Size(512), sc.Threads[2].Stack)
	assert.Equal(t, Size(2048+1024+512+1024), sc.StackUsage())
	assert.Equal(t, 2, sc.Interrupts[0].Count)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

func TestParseYAMLErrors(t *testing.T) {
	_, err := Parse("bad.yaml", []byte("main: []\nbogus: 1\n"))
	var list ErrorList
	require.True(t, errors.As(err, &list), "got %T: %v", err, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bad.yaml", list[0].File)
	assert.Equal(t, 2, list[0].Line)
	assert.Contains(t, list[0].Msg, "bogus")

	_, err = Parse("bad.yaml", []byte("max_time: soon\nmemory: lots\n"))
	require.True(t, errors.As(err, &list))
	require.Len(t, list, 2)
	assert.Contains(t, list[0].Msg, `invalid duration "soon"`)
	assert.Contains(t, list[1].Msg, `invalid size "lots"`)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	_, err := Parse("bad.yaml", []byte(`
memory: 1KB
semaphores: [{name: s, limit: 1}, {name: z, initial: 2, limit: 1}]
threads:
  - {name: a, priority: 99, script: ["frobnicate"]}
  - {name: s, priority: 1}
interrupts:
  - {name: timer, at: 10ms, script: ["take s forever", "sleep 1s"]}
  - {name: burst, count: 3}
main: ["wakeup nobody", "take a", "work", "priority self 2", "print 'unterminated"]
`))
	var list ErrorList
	require.True(t, errors.As(err, &list), "got %T: %v", err, err)
	msgs := map[string]string{}
	for _, e := range list {
		msgs[e.Path] = e.Msg
	}
	assert.Contains(t, msgs["semaphores[1].initial"], "above the limit")
	assert.Contains(t, msgs["threads[0].priority"], "out of range")
	assert.Contains(t, msgs["threads[0].script[0]"], `unknown command "frobnicate"`)
	assert.Contains(t, msgs["threads[1].name"], "already used by a semaphore")
	assert.Contains(t, msgs["interrupts[0].script[0]"], "nowait")
	assert.Contains(t, msgs["interrupts[0].script[1]"], "cannot be used in an interrupt")
	assert.Contains(t, msgs["interrupts[1].every"], "period")
	assert.Contains(t, msgs["memory"], "only 1.00KB")
	assert.Contains(t, msgs["main[0]"], `unknown thread "nobody"`)
	assert.Contains(t, msgs["main[1]"], `"a" is a thread, not a semaphore`)
	assert.Contains(t, msgs["main[2]"], "takes 1 arguments, got 0")
	assert.NotContains(t, msgs, "main[3]")
	assert.Contains(t, msgs, "main[4]")
}

func TestValidateKernelConfig(t *testing.T) {
	_, err := Parse("bad.yaml", []byte("kernel: {coop_priorities: 30, preempt_priorities: 8}\n"))
	var list ErrorList
	require.True(t, errors.As(err, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "kernel", list[0].Path)
	assert.Contains(t, list[0].Error(), "bad.yaml: kernel: kernel: 38 priorities configured")
}

func TestCheckCommand(t *testing.T) {
	sc, err := Load("testdata/pingpong.yaml")
	require.NoError(t, err)
	for line, ok := range map[string]bool{
		"take tick 10ms":  true,
		"resume ping":     true,
		"give ping":       false,
		"mutex-lock tick": false,
		"sleep -1s":       false,
		"priority pong 1": true,
		"priority pong 7": false,
	} {
		c, err := ParseCommand(line)
		require.NoError(t, err)
		if ok {
			assert.NoError(t, sc.CheckCommand(c), line)
		} else {
			assert.Error(t, sc.CheckCommand(c), line)
		}
	}
}
