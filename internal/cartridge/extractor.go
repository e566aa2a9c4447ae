package cartridge

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wwcc-dale/zaphod/internal/config"
	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/services"
)

// Extractor unpacks untrusted cartridge archives into a scratch directory
// under the configured security ceilings. It never writes outside the
// destination directory and removes the destination entirely on any fatal
// condition.
type Extractor struct {
	cfg    config.Archive
	logger *slog.Logger
}

// NewExtractor creates an extractor enforcing the given archive ceilings.
func NewExtractor(cfg config.Archive, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "extractor"),
	}
}

// Extract validates and unpacks the archive at archivePath into destDir.
// Members violating per-member ceilings or path safety are skipped with a
// warning; count and aggregate-size violations abort the whole operation.
// On any fatal error the destination directory is removed before returning.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrStructural, "extractor", "extract", "create scratch directory", err)
	}
	if err := e.extractInto(ctx, archivePath, destDir); err != nil {
		if removeErr := os.RemoveAll(destDir); removeErr != nil {
			e.logger.Warn("scratch cleanup failed",
				logging.String(logging.FieldPath, destDir),
				logging.Error(removeErr))
		}
		return err
	}
	return nil
}

func (e *Extractor) extractInto(ctx context.Context, archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return services.Wrap(services.ErrStructural, "extractor", "extract", "open archive", err)
	}
	defer reader.Close()

	if len(reader.File) > e.cfg.MaxMembers {
		return services.Wrap(services.ErrSecurity, "extractor", "extract",
			fmt.Sprintf("archive contains %d members (limit %d)", len(reader.File), e.cfg.MaxMembers), nil)
	}

	var declaredTotal uint64
	for _, member := range reader.File {
		declaredTotal += member.UncompressedSize64
	}
	if declaredTotal > uint64(e.cfg.MaxTotalBytes) {
		return services.Wrap(services.ErrSecurity, "extractor", "extract",
			fmt.Sprintf("archive declares %d uncompressed bytes (limit %d)", declaredTotal, e.cfg.MaxTotalBytes), nil)
	}

	extracted := int64(0)
	for _, member := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		if int64(member.UncompressedSize64) > e.cfg.MaxMemberBytes {
			e.logger.Warn("member skipped: declared size over limit",
				logging.String(logging.FieldMember, member.Name),
				logging.Int64("size", int64(member.UncompressedSize64)))
			continue
		}
		if member.UncompressedSize64 > 0 && member.CompressedSize64 > 0 {
			ratio := float64(member.UncompressedSize64) / float64(member.CompressedSize64)
			if ratio > e.cfg.MaxCompressionRatio {
				e.logger.Warn("member skipped: suspicious compression ratio",
					logging.String(logging.FieldMember, member.Name),
					logging.Float64("ratio", ratio))
				continue
			}
		}
		if !isSafeMemberName(member.Name) {
			e.logger.Warn("member skipped: unsafe path",
				logging.String(logging.FieldMember, member.Name))
			continue
		}

		target := filepath.Join(destDir, filepath.FromSlash(member.Name))
		if !isContained(destDir, target) {
			e.logger.Warn("member skipped: path escapes destination",
				logging.String(logging.FieldMember, member.Name))
			continue
		}

		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return services.Wrap(services.ErrStructural, "extractor", "extract", "create directory "+member.Name, err)
			}
			continue
		}

		written, err := e.writeMember(member, target, e.cfg.MaxTotalBytes-extracted)
		if err != nil {
			return err
		}
		extracted += written
		if extracted > e.cfg.MaxTotalBytes {
			return services.Wrap(services.ErrSecurity, "extractor", "extract",
				fmt.Sprintf("extracted bytes exceed limit %d", e.cfg.MaxTotalBytes), nil)
		}
	}
	return nil
}

// writeMember copies one archive member to disk, allowing at most remaining+1
// bytes so a member whose real size exceeds its declared size cannot blow
// past the aggregate ceiling unnoticed.
func (e *Extractor) writeMember(member *zip.File, target string, remaining int64) (int64, error) {
	source, err := member.Open()
	if err != nil {
		return 0, services.Wrap(services.ErrStructural, "extractor", "extract", "open member "+member.Name, err)
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, services.Wrap(services.ErrStructural, "extractor", "extract", "create parent for "+member.Name, err)
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, services.Wrap(services.ErrStructural, "extractor", "extract", "create file for "+member.Name, err)
	}
	defer out.Close()

	written, err := io.Copy(out, io.LimitReader(source, remaining+1))
	if err != nil {
		return written, services.Wrap(services.ErrStructural, "extractor", "extract", "write member "+member.Name, err)
	}
	return written, nil
}

// isSafeMemberName rejects member names that could escape the destination
// directory or smuggle reserved characters into the file system: absolute
// paths, drive-letter prefixes, parent-directory segments, control
// characters, and the reserved set < > | ? *.
func isSafeMemberName(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return false
	}
	if len(name) >= 2 && name[1] == ':' {
		return false
	}
	for _, segment := range strings.FieldsFunc(strings.ReplaceAll(name, "\\", "/"), func(r rune) bool { return r == '/' }) {
		if segment == ".." {
			return false
		}
	}
	if strings.ContainsAny(name, `<>|?*`) {
		return false
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// isContained reports whether target resolves lexically inside root.
func isContained(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
