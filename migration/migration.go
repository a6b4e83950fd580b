package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/Daskott/favdial/colors"
	"github.com/Daskott/favdial/directory"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/models"
	"github.com/Daskott/favdial/recordstore"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var ErrNotDocument = errors.New("stored favorites are not a JSON array")

// BlobWriter is the part of the blob store migration writes extracted images to.
type BlobWriter interface {
	Put(data []byte, ownerHint string) (string, error)
}

// SkippedEntry is a legacy entry that could not be matched to a known shape.
type SkippedEntry struct {
	Index  int
	Reason string
}

// Report summarises one migration run.
type Report struct {
	Total           int
	Versions        map[SchemaVersion]int
	Upgraded        int
	Skipped         []SkippedEntry
	ImagesExtracted int
	ImagesDropped   int
	NamesBackfilled int
}

// Partial reports whether some entries were dropped.
func (r *Report) Partial() bool {
	return len(r.Skipped) > 0
}

func (r *Report) String() string {
	return fmt.Sprintf("total=%v upgraded=%v skipped=%v images_extracted=%v images_dropped=%v names_backfilled=%v",
		r.Total, r.Upgraded, len(r.Skipped), r.ImagesExtracted, r.ImagesDropped, r.NamesBackfilled)
}

// upgradeFunc lifts a draft from one schema version to the next.
type upgradeFunc func(ctx context.Context, e *Engine, d *draft, report *Report) error

// upgrades maps each legacy version to the step that lifts it by one version.
var upgrades = map[SchemaVersion]upgradeFunc{
	SchemaV1: upgradeV1ToV2,
	SchemaV2: upgradeV2ToV3,
}

// Engine rewrites legacy records into the current shape.
type Engine struct {
	blobs     BlobWriter
	directory directory.Directory
	logg      *zap.SugaredLogger
}

// New returns an Engine. dir may be nil, in which case names are derived
// from the cached display name.
func New(blobs BlobWriter, dir directory.Directory, logg *zap.SugaredLogger) *Engine {
	return &Engine{blobs: blobs, directory: dir, logg: logger.OrNop(logg)}
}

// Migrate walks the untyped document in raw and upgrades every entry it
// recognises. Unrecognised entries are skipped and reported; the rest of the
// document is still migrated.
func (e *Engine) Migrate(ctx context.Context, raw []byte) (models.Collection, *Report, error) {
	if !recordstore.IsDocument(raw) {
		return nil, nil, ErrNotDocument
	}

	report := &Report{Versions: map[SchemaVersion]int{}}
	collection := models.Collection{}
	seen := map[string]bool{}

	for index, entry := range gjson.ParseBytes(raw).Array() {
		report.Total++

		d, err := parseDraft(entry)
		if err != nil {
			e.skip(report, index, err.Error())
			continue
		}
		report.Versions[d.version]++

		if err := e.upgrade(ctx, d, report); err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			e.skip(report, index, err.Error())
			continue
		}

		record := d.record()
		if seen[record.ID] {
			record.ID = models.NewID()
		}
		seen[record.ID] = true

		collection = append(collection, record)
	}

	if report.Partial() {
		e.logg.Warnf("%spartial migration: %v of %v entries skipped",
			colors.Prefix(colors.Yellow, "migration"), len(report.Skipped), report.Total)
	}
	e.logg.Infof("%s%v", colors.Prefix(colors.Blue, "migration"), report)

	return collection, report, nil
}

func (e *Engine) upgrade(ctx context.Context, d *draft, report *Report) error {
	upgraded := d.version < CURRENT_VERSION

	for d.version < CURRENT_VERSION {
		step, ok := upgrades[d.version]
		if !ok {
			return errors.Errorf("no upgrade from %v", d.version)
		}

		if err := step(ctx, e, d, report); err != nil {
			return errors.Wrapf(err, "upgrading from %v", d.version)
		}
		d.version++
	}

	if upgraded {
		report.Upgraded++
	}
	return nil
}

func (e *Engine) skip(report *Report, index int, reason string) {
	report.Skipped = append(report.Skipped, SkippedEntry{Index: index, Reason: reason})
	e.logg.Warnf("%sskipping entry %v: %v", colors.Prefix(colors.Yellow, "migration"), index, reason)
}

// upgradeV1ToV2 backfills the cached names from the directory and defaults
// the routing fields.
func upgradeV1ToV2(ctx context.Context, e *Engine, d *draft, report *Report) error {
	d.method = string(models.MethodOrDefault(d.method))
	d.app = string(models.AppOrDefault(d.app))

	contact, err := directory.FetchWithRetry(ctx, e.directory, d.contactRef, directory.NameFields)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.logg.Warnf("%sdirectory lookup for %v failed, deriving names: %v",
			colors.Prefix(colors.Yellow, "migration"), d.contactRef, err)
		d.givenName, d.familyName = splitDisplayName(d.displayName)
		return nil
	}

	d.givenName = contact.GivenName
	d.familyName = contact.FamilyName
	if d.displayName == "" {
		d.displayName = contact.DisplayName
	}
	if d.displayName == "" {
		d.displayName = strings.TrimSpace(contact.GivenName + " " + contact.FamilyName)
	}
	report.NamesBackfilled++

	return nil
}

// upgradeV2ToV3 moves inline avatar bytes into the blob store.
func upgradeV2ToV3(ctx context.Context, e *Engine, d *draft, report *Report) error {
	if d.inlineImageBad {
		e.logg.Warnf("%sunreadable inline image for %v dropped", colors.Prefix(colors.Yellow, "migration"), d.contactRef)
		report.ImagesDropped++
	}

	if len(d.inlineImage) == 0 {
		d.inlineImage = nil
		return nil
	}

	ref, err := e.blobs.Put(d.inlineImage, d.contactRef)
	if err != nil {
		e.logg.Errorf("%sunable to extract inline image for %v: %v", colors.Prefix(colors.Red, "migration"), d.contactRef, err)
		report.ImagesDropped++
		d.inlineImage = nil
		return nil
	}

	d.avatarRef = ref
	d.inlineImage = nil
	report.ImagesExtracted++

	return nil
}

func splitDisplayName(displayName string) (given, family string) {
	parts := strings.Fields(displayName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
