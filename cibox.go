package cibox

import (
	"fmt"
	"os"
	"path/filepath"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/isbm/go-nanoconf"
	"github.com/urfave/cli/v2"

	cibox_arch "github.com/infra-whizz/cibox/arch"
	cibox_cnt "github.com/infra-whizz/cibox/cnt"
	cibox_distro "github.com/infra-whizz/cibox/distro"
	cibox_exec "github.com/infra-whizz/cibox/executor"
	cibox_lib "github.com/infra-whizz/cibox/lib"
)

// ContainerApp object. Binds the distribution matcher, the artifact
// fetcher and the container lifecycle together for the CLI.
type ContainerApp struct {
	matcher *cibox_distro.Matcher
	fetcher *cibox_lib.HTTPFetcher

	wzlib_logger.WzLogger
}

// NewContainerApp constructor
func NewContainerApp() *ContainerApp {
	app := new(ContainerApp)
	app.matcher = cibox_distro.NewMatcher()
	app.fetcher = cibox_lib.NewHTTPFetcher()

	confpath := nanoconf.NewNanoconfFinder("cibox").DefaultSetup(nil)
	if confpath.FindFirst() != "" {
		conf := nanoconf.NewConfig(confpath.SetDefaultConfig(confpath.FindFirst()).FindDefault())
		if cacheDir := conf.Root().String("download-cache", ""); cacheDir != "" {
			app.fetcher.SetCacheDir(cacheDir)
		}
	}

	return app
}

// Matcher returns the distribution matcher of the app.
func (app *ContainerApp) Matcher() *cibox_distro.Matcher {
	return app.matcher
}

func requestFromFlags(ctx *cli.Context) cibox_distro.Request {
	return cibox_distro.Request{
		Distro:  ctx.String("distro"),
		Release: ctx.String("release"),
		Arch:    ctx.String("arch"),
		Local:   ctx.Bool("local"),
	}
}

// containerDir returns the resolved container directory argument.
func containerDir(ctx *cli.Context) (string, error) {
	dir := ctx.Args().First()
	if dir == "" {
		return "", fmt.Errorf("Container directory is missing")
	}
	return filepath.Abs(dir)
}

func (app *ContainerApp) logConfiguration(cfg *cibox_distro.Config) {
	app.GetLogger().Infof("Configured distribution:")
	app.GetLogger().Infof(" - Distribution name: %s", cfg.Distro)
	if cfg.Release != "" {
		app.GetLogger().Infof(" - Release: %s", cfg.Release)
	}
	if cfg.Arch != "" {
		app.GetLogger().Infof(" - Architecture: %s", cibox_arch.Universal(cfg.Arch))
	}
	app.GetLogger().Infof(" - Package system: %s", cfg.PkgSys)
}

// RunCreate realises the container described by the CLI flags, installs
// the requested packages into it, shrinks it and persists the resolved
// configuration for later use calls.
func (app *ContainerApp) RunCreate(ctx *cli.Context) error {
	dir, err := containerDir(ctx)
	if err != nil {
		return err
	}

	cfg, err := app.matcher.Match(requestFromFlags(ctx))
	if err != nil {
		return err
	}

	if err := cibox_distro.CheckConflict(dir, cfg); err != nil {
		return err
	}

	app.logConfiguration(cfg)
	container, err := cibox_cnt.Create(dir, cfg, app.fetcher)
	if err != nil {
		return err
	}

	if err := installAndClean(container, ctx.String("repositories"), ctx.String("packages")); err != nil {
		return err
	}

	if err := cibox_distro.WriteDetails(dir, cfg); err != nil {
		return err
	}

	app.GetLogger().Infof("Container has been set up in %s", dir)
	return nil
}

// installAndClean applies the requested repositories and packages to a
// realised container. The container is shrunk for caching on every exit
// path: a failed install still leaves a cleaned artifact behind.
func installAndClean(container cibox_cnt.Container, repositoriesPath string, packagesPath string) (err error) {
	defer func() {
		if cleanErr := container.Clean(); cleanErr != nil && err == nil {
			err = cleanErr
		}
	}()
	return cibox_cnt.InstallFromFiles(container, repositoriesPath, packagesPath)
}

// RunUse executes a command inside an already created container and
// returns the command's exit code. Flags left out fall back to the
// configuration persisted at creation time.
func (app *ContainerApp) RunUse(ctx *cli.Context) (int, error) {
	dir, err := containerDir(ctx)
	if err != nil {
		return 1, err
	}

	argv := ctx.Args().Tail()
	if len(argv) == 0 {
		return 1, fmt.Errorf("Command to run inside the container is missing")
	}

	cfg, err := app.matcher.MatchOrPersisted(requestFromFlags(ctx), dir)
	if err != nil {
		return 1, err
	}

	container, err := cibox_cnt.ContainerFor(dir, cfg, app.fetcher)
	if err != nil {
		return 1, err
	}

	code, _, stderr, err := container.Executor().Execute(argv, cibox_exec.Flags{
		LiveOutput: ctx.Bool("show-output"),
	})
	if err != nil {
		return 1, err
	}
	if code != 0 && stderr != "" && !ctx.Bool("show-output") {
		os.Stderr.WriteString(stderr)
	}
	return code, nil
}

// RunRoot prints the host filesystem location of the container's root.
func (app *ContainerApp) RunRoot(ctx *cli.Context) error {
	dir, err := containerDir(ctx)
	if err != nil {
		return err
	}

	cfg, err := app.matcher.MatchOrPersisted(requestFromFlags(ctx), dir)
	if err != nil {
		return err
	}

	container, err := cibox_cnt.ContainerFor(dir, cfg, app.fetcher)
	if err != nil {
		return err
	}

	fmt.Println(container.Root())
	return nil
}

// RunEnumerate lists every configuration the current host can realise.
func (app *ContainerApp) RunEnumerate(ctx *cli.Context) error {
	iter := app.matcher.Enumerate()
	for {
		cfg, ok := iter.Next()
		if !ok {
			break
		}
		release := cfg.Release
		if release == "" {
			release = "-"
		}
		fmt.Printf("%s %s %s (%s)\n", cfg.Distro, release, cfg.Arch, cfg.Installation)
	}
	return nil
}
