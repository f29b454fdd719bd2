package ffmpeg

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestCommandArgs(t *testing.T) {
	c := New().Global("-y")
	front := c.Input("/tmp/concat-front.txt", InputOptions{Format: "concat", Seek: 5.5})
	black := c.Input("color=c=black:s=724x469:r=36:d=65", InputOptions{Format: "lavfi"})
	graph := "[0:v]fps=36,setpts=PTS-STARTPTS,scale=724:469,setsar=1[v0];" +
		"[1:v]fps=36,setpts=PTS-STARTPTS,scale=724:469,setsar=1[v1];" +
		"[v0][v1]xstack=inputs=2:layout=0_0|724_0[out]"
	c.FilterComplex(graph)
	c.Map("[out]").
		Options("-c:v", "libx264", "-crf", "23").
		Option("-movflags", "+faststart").
		Output("/tmp/out.mp4")

	if front != 0 || black != 1 {
		t.Fatalf("input indexes = %d, %d", front, black)
	}

	args, err := c.Args()
	if err != nil {
		t.Fatalf("Args() error: %v", err)
	}

	want := []string{
		"-hide_banner", "-y",
		"-f", "concat", "-safe", "0", "-ss", "5.5", "-i", "/tmp/concat-front.txt",
		"-f", "lavfi", "-i", "color=c=black:s=724x469:r=36:d=65",
		"-filter_complex", graph,
		"-map", "[out]",
		"-c:v", "libx264", "-crf", "23",
		"-movflags", "+faststart",
		"/tmp/out.mp4",
	}
	if !slices.Equal(args, want) {
		t.Errorf("Args() =\n%q\nwant\n%q", args, want)
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Error("output path must be the final argument")
	}
}

func TestCommandValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Command
		wantErr string
	}{
		{
			name: "valid map by stream",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c.Map("0:v").Output("b.mp4")
			},
		},
		{
			name:    "no inputs",
			build:   func() *Command { return New().Output("b.mp4") },
			wantErr: "no inputs",
		},
		{
			name: "no output",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c
			},
			wantErr: "trailing output",
		},
		{
			name: "argument after output",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c.Output("b.mp4").Option("-t", "5")
			},
			wantErr: "after output",
		},
		{
			name: "global after input",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c.Global("-y").Output("b.mp4")
			},
			wantErr: "after input section",
		},
		{
			name: "filter references missing input",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c.FilterComplex("[1:v]hflip[out]").Map("[out]").Output("b.mp4")
			},
			wantErr: "references input 1",
		},
		{
			name: "map unknown label",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c.FilterComplex("[0:v]hflip[v0]").Map("[out]").Output("b.mp4")
			},
			wantErr: "unknown label [out]",
		},
		{
			name: "consumes label before it exists",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c.FilterComplex("[v0]null[out];[0:v]hflip[v0]").Map("[out]").Output("b.mp4")
			},
			wantErr: "consumes unknown label [v0]",
		},
		{
			name: "empty chain",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c.FilterComplex("[0:v]hflip[v0];;").Map("[v0]").Output("b.mp4")
			},
			wantErr: "empty filter chain",
		},
		{
			name: "unbalanced",
			build: func() *Command {
				c := New()
				c.Input("a.mp4", InputOptions{})
				return c.FilterComplex("[0:v]hflip[v0").Map("[v0]").Output("b.mp4")
			},
			wantErr: "unbalanced",
		},
		{
			name: "odd extra input args",
			build: func() *Command {
				c := New()
				c.Input("pipe:0", InputOptions{Extra: []string{"-pix_fmt"}})
				return c.Output("b.mov")
			},
			wantErr: "odd number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidCommand) {
				t.Fatalf("error = %v, want ErrInvalidCommand", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	c := New()
	c.Input("my clip.mp4", InputOptions{})
	c.Output("out.mp4")
	got := c.String()
	if got != `ffmpeg -hide_banner -i "my clip.mp4" out.mp4` {
		t.Errorf("String() = %s", got)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := map[float64]string{
		0:       "0",
		5:       "5",
		5.5:     "5.5",
		12.3456: "12.346",
		65.0001: "65",
	}
	for in, want := range tests {
		if got := FormatSeconds(in); got != want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", in, got, want)
		}
	}
}
