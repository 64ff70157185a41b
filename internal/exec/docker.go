package exec

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// SandboxLimits bound one container-backed execution.
type SandboxLimits struct {
	MemoryBytes int64
	NanoCPUs    int64
	PidsLimit   int64
}

// DockerStrategy runs code in a fresh hardened container per request: no
// network, read-only root with tmpfs workspace, all capabilities dropped, no
// privilege escalation. Capability denial is enforced by the isolation
// boundary itself; code that tries the network or the host filesystem fails
// inside the sandbox and surfaces as an execution error, never as a
// dispatcher fault. No interpreter state survives between requests.
type DockerStrategy struct {
	cli      *client.Client
	image    string
	fileName string
	runCmd   []string
	limits   SandboxLimits
}

// NewPythonStrategy is the baseline genuine sandbox: python in a slim image.
func NewPythonStrategy(image string, limits SandboxLimits) (*DockerStrategy, error) {
	return NewDockerStrategy(image, "main.py", []string{"python3", "main.py"}, limits)
}

func NewDockerStrategy(image, fileName string, runCmd []string, limits SandboxLimits) (*DockerStrategy, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerStrategy{
		cli:      cli,
		image:    image,
		fileName: fileName,
		runCmd:   runCmd,
		limits:   limits,
	}, nil
}

func (d *DockerStrategy) Run(ctx context.Context, code, stdin string) (Output, error) {
	pids := d.limits.PidsLimit
	if pids == 0 {
		pids = 64
	}

	hostCfg := &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		Mounts: []mount.Mount{
			{Type: mount.TypeTmpfs, Target: "/tmp"},
			{Type: mount.TypeTmpfs, Target: "/workspace"},
		},
		Resources: container.Resources{
			Memory:    d.limits.MemoryBytes,
			NanoCPUs:  d.limits.NanoCPUs,
			PidsLimit: &pids,
		},
		SecurityOpt: []string{"no-new-privileges"},
		CapDrop:     []string{"ALL"},
	}
	conf := &container.Config{
		Image:           d.image,
		Cmd:             []string{"sh", "-c", "sleep infinity"},
		Tty:             false,
		NetworkDisabled: true,
		WorkingDir:      "/workspace",
	}

	create, err := d.cli.ContainerCreate(ctx, conf, hostCfg, nil, nil, "")
	if err != nil {
		return Output{}, fmt.Errorf("create sandbox container: %w", err)
	}
	cid := create.ID
	defer func() {
		// Removal runs on a fresh context so resources are released even when
		// the execution deadline already expired.
		_ = d.cli.ContainerRemove(context.Background(), cid, types.ContainerRemoveOptions{Force: true})
	}()

	if err := d.cli.ContainerStart(ctx, cid, types.ContainerStartOptions{}); err != nil {
		return Output{}, fmt.Errorf("start sandbox container: %w", err)
	}

	if err := d.copyFile(ctx, cid, "/workspace/"+d.fileName, []byte(code)); err != nil {
		return Output{}, fmt.Errorf("copy source into sandbox: %w", err)
	}

	execResp, err := d.cli.ContainerExecCreate(ctx, cid, types.ExecConfig{
		Cmd:          d.runCmd,
		WorkingDir:   "/workspace",
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          false,
	})
	if err != nil {
		return Output{}, fmt.Errorf("create exec: %w", err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, execResp.ID, types.ExecStartCheck{Tty: false})
	if err != nil {
		return Output{}, fmt.Errorf("attach exec: %w", err)
	}
	defer attach.Close()

	// Feed the caller-supplied stdin, then close the write side so exhausted
	// input yields EOF instead of a sandbox that hangs waiting forever.
	if stdin != "" {
		if _, err := attach.Conn.Write([]byte(stdin)); err != nil {
			return Output{}, fmt.Errorf("write stdin: %w", err)
		}
	}
	_ = attach.CloseWrite()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		done <- copyErr
	}()

	select {
	case err := <-done:
		if err != nil {
			return Output{}, fmt.Errorf("read sandbox output: %w", err)
		}
	case <-ctx.Done():
		return Output{}, ctx.Err()
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return Output{}, fmt.Errorf("inspect exec: %w", err)
	}

	return Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

func (d *DockerStrategy) copyFile(ctx context.Context, cid, absPath string, content []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name: absPath[1:],
		Mode: 0600,
		Size: int64(len(content)),
	}); err != nil {
		return err
	}
	if _, err := tw.Write(content); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return d.cli.CopyToContainer(ctx, cid, "/", &buf, types.CopyToContainerOptions{})
}
