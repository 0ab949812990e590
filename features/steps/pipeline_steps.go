//go:build integration

package steps

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sh1Nome/extract-streams-web/application/extraction"
	"github.com/sh1Nome/extract-streams-web/domain/audio"
	"github.com/sh1Nome/extract-streams-web/infrastructure/archive"
	"github.com/sh1Nome/extract-streams-web/infrastructure/filesystem"

	"github.com/cucumber/godog"
	"go.uber.org/zap"
)

// fakeTrackSource stands in for ffprobe/ffmpeg. Each extracted track file
// holds "<source contents>#<stream index>" so tests can check that the right
// stream landed under the right entry name.
type fakeTrackSource struct {
	mu         sync.Mutex
	indices    []int
	listErr    error
	failStream map[int]bool
	extracted  []int
}

func (f *fakeTrackSource) ListAudioTracks(ctx context.Context, sourcePath string) ([]audio.Track, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return audio.NewTracks(f.indices), nil
}

func (f *fakeTrackSource) ExtractTrack(ctx context.Context, sourcePath string, track audio.Track, outputPath string) error {
	if f.failStream[track.Index] {
		return audio.NewTrackExtractionError(track.Index, errors.New("ffmpeg exited with status 1"))
	}

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(fmt.Sprintf("%s#%d", src, track.Index)), 0o644); err != nil {
		return err
	}

	f.mu.Lock()
	f.extracted = append(f.extracted, track.Index)
	f.mu.Unlock()
	return nil
}

var _ audio.TrackSource = (*fakeTrackSource)(nil)

type pipelineContext struct {
	tempDir       string
	source        *fakeTrackSource
	maxConcurrent int
	content       []byte
	result        *audio.Result
	err           error
}

// SharedPipelineContext is reset before each scenario via Before hook
var SharedPipelineContext *pipelineContext

func getPipelineContext() *pipelineContext {
	return SharedPipelineContext
}

// newPipelineService wires the real workspace manager and ZIP archiver around the fake source
func (p *pipelineContext) newPipelineService() *extraction.Service {
	logger := zap.NewNop()
	workspaces := filesystem.NewWorkspaceManager(
		filesystem.WithTempDir(p.tempDir),
		filesystem.WithLogger(logger),
	)
	orchestrator := extraction.NewOrchestrator(p.source,
		extraction.WithMaxConcurrent(p.maxConcurrent),
		extraction.WithOrchestratorLogger(logger),
	)
	return extraction.NewService(workspaces, orchestrator, archive.NewZipArchiver(), logger)
}

func InitializePipelineScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "pipeline-test-*")
		if err != nil {
			return c, err
		}
		SharedPipelineContext = &pipelineContext{
			tempDir:       tempDir,
			source:        &fakeTrackSource{failStream: make(map[int]bool)},
			maxConcurrent: 2,
			content:       []byte("video"),
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if p := getPipelineContext(); p != nil && p.tempDir != "" {
			os.RemoveAll(p.tempDir)
		}
		SharedPipelineContext = nil
		return c, nil
	})

	ctx.Step(`^a video with audio streams at indices "([^"]*)"$`, aVideoWithAudioStreamsAtIndices)
	ctx.Step(`^a video with no audio streams$`, aVideoWithNoAudioStreams)
	ctx.Step(`^a file the probe cannot read$`, aFileTheProbeCannotRead)
	ctx.Step(`^encoding stream (\d+) fails$`, encodingStreamFails)
	ctx.Step(`^at most (\d+) tracks? (?:is|are) encoded at once$`, atMostTracksAreEncodedAtOnce)
	ctx.Step(`^I extract the audio tracks$`, iExtractTheAudioTracks)
	ctx.Step(`^the archive should contain entries:$`, theArchiveShouldContainEntries)
	ctx.Step(`^the archive should be empty$`, theArchiveShouldBeEmpty)
	ctx.Step(`^the archive file name should end with "([^"]*)"$`, theArchiveFileNameShouldEndWith)
	ctx.Step(`^the extraction should fail with a (track discovery|track extraction|archive creation|pipeline I/O) error$`, theExtractionShouldFailWith)
	ctx.Step(`^the failure should name stream (\d+)$`, theFailureShouldNameStream)
	ctx.Step(`^no workspace files should remain$`, noWorkspaceFilesShouldRemain)
}

func parseIndices(list string) ([]int, error) {
	var indices []int
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid stream index %q: %w", field, err)
		}
		indices = append(indices, n)
	}
	return indices, nil
}

func aVideoWithAudioStreamsAtIndices(list string) error {
	indices, err := parseIndices(list)
	if err != nil {
		return err
	}
	getPipelineContext().source.indices = indices
	return nil
}

func aVideoWithNoAudioStreams() error {
	getPipelineContext().source.indices = nil
	return nil
}

func aFileTheProbeCannotRead() error {
	p := getPipelineContext()
	p.content = []byte("just some text")
	p.source.listErr = audio.Wrap(audio.ErrTrackDiscoveryFailed, "ffprobe", errors.New("Invalid data found when processing input"))
	return nil
}

func encodingStreamFails(index int) error {
	getPipelineContext().source.failStream[index] = true
	return nil
}

func atMostTracksAreEncodedAtOnce(n int) error {
	getPipelineContext().maxConcurrent = n
	return nil
}

func iExtractTheAudioTracks() error {
	p := getPipelineContext()
	p.result, p.err = p.newPipelineService().Extract(context.Background(), "movie.mkv", p.content)
	return nil
}

func readArchive(data []byte) (map[string]string, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("archive is not a valid ZIP: %w", err)
	}

	contents := make(map[string]string)
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, nil, err
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, err
		}
		names = append(names, f.Name)
		contents[f.Name] = string(body)
	}
	return contents, names, nil
}

func theArchiveShouldContainEntries(table *godog.Table) error {
	p := getPipelineContext()
	if p.err != nil {
		return fmt.Errorf("extraction failed: %w", p.err)
	}

	contents, names, err := readArchive(p.result.Archive)
	if err != nil {
		return err
	}

	var want []string
	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		name := row.Cells[0].Value
		stream := row.Cells[1].Value
		want = append(want, name)

		expected := fmt.Sprintf("%s#%s", p.content, stream)
		if contents[name] != expected {
			return fmt.Errorf("entry %s holds %q, want %q", name, contents[name], expected)
		}
	}

	if strings.Join(names, ",") != strings.Join(want, ",") {
		return fmt.Errorf("archive entries %v, want %v", names, want)
	}
	if p.result.Tracks != len(want) {
		return fmt.Errorf("result reports %d tracks, want %d", p.result.Tracks, len(want))
	}
	return nil
}

func theArchiveShouldBeEmpty() error {
	p := getPipelineContext()
	if p.err != nil {
		return fmt.Errorf("extraction failed: %w", p.err)
	}
	_, names, err := readArchive(p.result.Archive)
	if err != nil {
		return err
	}
	if len(names) != 0 {
		return fmt.Errorf("expected an empty archive, got %v", names)
	}
	return nil
}

func theArchiveFileNameShouldEndWith(suffix string) error {
	p := getPipelineContext()
	if p.result == nil {
		return fmt.Errorf("no result: %v", p.err)
	}
	if !strings.HasSuffix(p.result.FileName, suffix) {
		return fmt.Errorf("archive file name %q does not end with %q", p.result.FileName, suffix)
	}
	if strings.ContainsRune(p.result.FileName, filepath.Separator) {
		return fmt.Errorf("archive file name %q contains a directory", p.result.FileName)
	}
	return nil
}

var errorKinds = map[string]error{
	"track discovery":  audio.ErrTrackDiscoveryFailed,
	"track extraction": audio.ErrTrackExtractionFailed,
	"archive creation": audio.ErrArchiveCreationFailed,
	"pipeline I/O":     audio.ErrPipelineIO,
}

func theExtractionShouldFailWith(kind string) error {
	p := getPipelineContext()
	if p.err == nil {
		return fmt.Errorf("expected a %s error but extraction succeeded", kind)
	}
	if !errors.Is(p.err, errorKinds[kind]) {
		return fmt.Errorf("expected a %s error, got %v", kind, p.err)
	}
	if p.result != nil {
		return fmt.Errorf("expected no result alongside the error")
	}
	return nil
}

func theFailureShouldNameStream(index int) error {
	p := getPipelineContext()
	got, ok := audio.FailedTrackIndex(p.err)
	if !ok {
		return fmt.Errorf("error carries no track index: %v", p.err)
	}
	if got != index {
		return fmt.Errorf("failure names stream %d, want %d", got, index)
	}
	return nil
}

func noWorkspaceFilesShouldRemain() error {
	p := getPipelineContext()
	entries, err := os.ReadDir(p.tempDir)
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return fmt.Errorf("workspace files left behind: %v", names)
	}
	return nil
}
