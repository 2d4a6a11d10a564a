// Package main provides a Dagger module for building and running Rollcall.
//
// The module is used with the Dagger CLI or SDKs to automate test, build
// and publish workflows.
package main

import (
	"context"
	"dagger/rollcall/internal/dagger"
	"fmt"
	"strings"
)

const (
	goImage      = "golang:1.24.2-alpine"
	runtimeImage = "gcr.io/distroless/static-debian12:latest"
	binaryName   = "rollcall"
)

type Rollcall struct{}

// goContainer returns a Go toolchain container with the source mounted and module caches attached.
func goContainer(src *dagger.Directory) *dagger.Container {
	return dag.Container().
		From(goImage).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithDirectory("/src", src).
		WithWorkdir("/src").
		WithEnvVariable("CGO_ENABLED", "0")
}

// Test runs the unit tests.
func (m *Rollcall) Test(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
) (string, error) {
	return goContainer(src).
		WithExec([]string{"go", "test", "./..."}).
		Stdout(ctx)
}

// BuildContainer creates a container image for the project.
func (m *Rollcall) BuildContainer(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
	// Platform to build for
	// +optional
	// +default="linux/amd64"
	platform *dagger.Platform,
) (*dagger.Container, error) {
	buildPlatform := dagger.Platform("linux/amd64")
	if platform != nil {
		buildPlatform = *platform
	}

	platformArch, err := dag.Containerd().ArchitectureOf(ctx, buildPlatform)
	if err != nil {
		return nil, fmt.Errorf("failed to get architecture: %w", err)
	}

	buildCtr := goContainer(src).
		WithEnvVariable("GOOS", "linux").
		WithEnvVariable("GOARCH", platformArch).
		WithExec([]string{"apk", "add", "--no-cache", "upx", "ca-certificates"}).
		WithExec([]string{"mkdir", "-p", "/src/bin", "/src/logs"}).
		WithExec([]string{
			"go", "build",
			"-ldflags=-s -w",
			"-o", "/src/bin/" + binaryName,
			"./cmd/" + binaryName,
		}).
		WithExec([]string{"upx", "--best", "--lzma", "/src/bin/" + binaryName})

	// Timezone data is embedded in the binary, so the static image is enough
	return dag.Container(dagger.ContainerOpts{Platform: buildPlatform}).
		From(runtimeImage).
		WithFile("/app/bin/"+binaryName, buildCtr.File("/src/bin/"+binaryName)).
		WithDirectory("/app/logs", buildCtr.Directory("/src/logs")).
		WithFile("/etc/ssl/certs/ca-certificates.crt", buildCtr.File("/etc/ssl/certs/ca-certificates.crt")).
		WithWorkdir("/app").
		WithEntrypoint([]string{"/app/bin/" + binaryName}), nil
}

// Publish builds the application container for each platform and pushes it.
func (m *Rollcall) Publish(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
	// Docker image name (e.g. "username/repo:tag")
	// +required
	imageName string,
	// Platforms to build for (comma-separated, e.g. "linux/amd64,linux/arm64")
	// +optional
	// +default="linux/amd64"
	platforms string,
) (string, error) {
	var platformList []dagger.Platform
	if platforms == "" {
		platformList = []dagger.Platform{"linux/amd64"}
	} else {
		for _, p := range strings.Split(platforms, ",") {
			platformList = append(platformList, dagger.Platform(strings.TrimSpace(p)))
		}
	}

	platformVariants := make([]*dagger.Container, 0, len(platformList))
	for _, platform := range platformList {
		container, err := m.BuildContainer(ctx, src, &platform)
		if err != nil {
			return "", fmt.Errorf("failed to build container for %s: %w", platform, err)
		}
		platformVariants = append(platformVariants, container)
	}

	ref, err := dag.Container().Publish(ctx, imageName, dagger.ContainerPublishOpts{
		PlatformVariants: platformVariants,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish image: %w", err)
	}

	return ref, nil
}

// Run builds the program and runs it with the given config directory.
func (m *Rollcall) Run(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
	// Directory holding rollcall.toml
	// +required
	configDir *dagger.Directory,
	// Run a single check and exit
	// +optional
	// +default=false
	once bool,
	// Print the single check report as JSON
	// +optional
	// +default=false
	json bool,
) *dagger.Container {
	args := []string{"/src/bin/" + binaryName}
	if once {
		args = append(args, "--once")
		if json {
			args = append(args, "--json")
		}
	}

	return goContainer(src).
		WithDirectory("/etc/rollcall/config", configDir).
		WithExec([]string{"apk", "add", "--no-cache", "ca-certificates"}).
		WithExec([]string{"go", "build", "-o", "/src/bin/" + binaryName, "./cmd/" + binaryName}).
		WithExec(args)
}
