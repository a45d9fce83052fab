package session

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/bken/audiompd/internal/command"
	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/eventloop"
	"github.com/bken/audiompd/internal/idle"
	"github.com/bken/audiompd/internal/instance"
)

func newTestSession(t *testing.T) (client net.Conn, loop *eventloop.Loop, inst *instance.Instance) {
	t.Helper()
	server, client := net.Pipe()
	loop = eventloop.New("test")
	inst = instance.New(database.NewMemory(), nil, nil)
	part := inst.DefaultPartition()
	sess := New(server, loop, inst, part, command.PermRead|command.PermAdd|command.PermControl|command.PermAdmin|command.PermPlayer)

	go loop.Run()
	go sess.Serve()
	t.Cleanup(func() {
		loop.Break()
		client.Close()
		inst.Close()
	})
	return client, loop, inst
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	client := make(chan string, 1)
	go func() {
		line, _ := r.ReadString('\n')
		client <- line
	}()
	select {
	case line := <-client:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response line")
		return ""
	}
}

func TestGreeting(t *testing.T) {
	client, _, _ := newTestSession(t)
	r := bufio.NewReader(client)
	line := readLine(t, r)
	if line != "OK MPD 0.23.5\n" {
		t.Fatalf("got %q", line)
	}
}

func TestPingOK(t *testing.T) {
	client, _, _ := newTestSession(t)
	r := bufio.NewReader(client)
	readLine(t, r) // greeting
	client.Write([]byte("ping\n"))
	if got := readLine(t, r); got != "OK\n" {
		t.Fatalf("got %q, want OK", got)
	}
}

func TestUnknownCommandACK(t *testing.T) {
	client, _, _ := newTestSession(t)
	r := bufio.NewReader(client)
	readLine(t, r)
	client.Write([]byte("frobnicate\n"))
	got := readLine(t, r)
	want := "ACK [5@0] {frobnicate} unknown command \"frobnicate\"\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestIdleDeliversOnBroadcast(t *testing.T) {
	client, _, inst := newTestSession(t)
	r := bufio.NewReader(client)
	readLine(t, r)

	client.Write([]byte("idle playlist\n"))
	time.Sleep(50 * time.Millisecond) // let the loop enter Waiting

	inst.DefaultPartition().Broadcast(idle.Database) // not subscribed, ignored
	inst.DefaultPartition().Broadcast(idle.Playlist)

	got := readLine(t, r)
	if got != "changed: playlist\n" {
		t.Fatalf("got %q, want changed: playlist", got)
	}
	if ok := readLine(t, r); ok != "OK\n" {
		t.Fatalf("got %q, want OK", ok)
	}
}

func TestNoIdleWithoutPendingIsNoop(t *testing.T) {
	client, _, _ := newTestSession(t)
	r := bufio.NewReader(client)
	readLine(t, r)
	client.Write([]byte("noidle\n"))
	if got := readLine(t, r); got != "OK\n" {
		t.Fatalf("got %q, want OK", got)
	}
}

func TestCommandListOk(t *testing.T) {
	client, _, _ := newTestSession(t)
	r := bufio.NewReader(client)
	readLine(t, r)

	client.Write([]byte("command_list_ok_begin\nping\nping\ncommand_list_end\n"))
	if got := readLine(t, r); got != "list_OK\n" {
		t.Fatalf("got %q, want list_OK", got)
	}
	if got := readLine(t, r); got != "list_OK\n" {
		t.Fatalf("got %q, want list_OK", got)
	}
	if got := readLine(t, r); got != "OK\n" {
		t.Fatalf("got %q, want OK", got)
	}
}

func TestCommandListBeginSuppressesPerCommandOK(t *testing.T) {
	client, _, _ := newTestSession(t)
	r := bufio.NewReader(client)
	readLine(t, r)

	client.Write([]byte("command_list_begin\nping\nping\ncommand_list_end\n"))
	if got := readLine(t, r); got != "OK\n" {
		t.Fatalf("got %q, want a single final OK with no list_OK markers", got)
	}
}

func TestTokenizeQuotedArgument(t *testing.T) {
	name, args, err := tokenize(`add "file with spaces.mp3"`)
	if err != nil {
		t.Fatal(err)
	}
	if name != "add" || len(args) != 1 || args[0] != "file with spaces.mp3" {
		t.Fatalf("got name=%q args=%v", name, args)
	}
}
