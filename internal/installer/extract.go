package installer

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

const (
	// DefaultMaxEntrySize caps a single archive member (decompression bombs)
	DefaultMaxEntrySize int64 = 1 << 30
	// maxSymlinkTarget caps the link text read from a zip symlink member
	maxSymlinkTarget = 4096
)

// MemberKind classifies an archive member.
type MemberKind int

const (
	// MemberSkip is a member type that is not written (devices, fifos, pax headers)
	MemberSkip MemberKind = iota
	MemberDir
	MemberFile
	MemberSymlink
	MemberHardlink
)

// PlannedMember is one validated archive member.
type PlannedMember struct {
	// Name is the path as stored in the archive
	Name string
	// Target is the absolute path the member is written to
	Target string
	Kind   MemberKind
	Mode   os.FileMode
	Size   int64
	// LinkName is the symlink text, or the absolute hardlink source
	LinkName string
}

// ExtractionPlan is the validated member list of an archive. Every Target
// (and every link destination) lies inside DestDir, no member is written
// through a symlink, and no two members disagree about whether a path is a
// directory.
type ExtractionPlan struct {
	Format  ArchiveFormat
	DestDir string
	Members []PlannedMember
}

// Extractor handles archive extraction
type Extractor struct {
	maxEntrySize int64
}

// NewExtractor creates a new extractor. A zero or negative maxEntrySize
// selects DefaultMaxEntrySize.
func NewExtractor(maxEntrySize int64) *Extractor {
	if maxEntrySize <= 0 {
		maxEntrySize = DefaultMaxEntrySize
	}
	return &Extractor{maxEntrySize: maxEntrySize}
}

// Extract validates every member of the archive and, only if all of them
// pass, writes them under destDir. destDir must already exist. A rejected
// archive leaves destDir untouched.
func (e *Extractor) Extract(archivePath string, format ArchiveFormat, destDir string) error {
	plan, err := e.Plan(archivePath, format, destDir)
	if err != nil {
		return err
	}
	return e.Apply(archivePath, plan)
}

// Plan reads the archive without writing anything and returns the validated
// member list.
func (e *Extractor) Plan(archivePath string, format ArchiveFormat, destDir string) (*ExtractionPlan, error) {
	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("resolve dest dir: %w", err)
	}
	info, err := os.Stat(absDest)
	if err != nil {
		return nil, fmt.Errorf("stat dest dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dest %s is not a directory", absDest)
	}

	p := &planner{
		destDir:   absDest,
		maxSize:   e.maxEntrySize,
		kinds:     make(map[string]MemberKind),
		linkPaths: make(map[string]struct{}),
		plan:      &ExtractionPlan{Format: format, DestDir: absDest},
	}

	switch format {
	case FormatTarGz:
		err = p.planTarGz(archivePath)
	case FormatZip:
		err = p.planZip(archivePath)
	default:
		err = fmt.Errorf("unsupported archive format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	return p.plan, nil
}

// Apply writes a plan produced by Plan for the same archive.
func (e *Extractor) Apply(archivePath string, plan *ExtractionPlan) error {
	switch plan.Format {
	case FormatTarGz:
		return e.applyTarGz(archivePath, plan)
	case FormatZip:
		return e.applyZip(archivePath, plan)
	default:
		return fmt.Errorf("unsupported archive format: %s", plan.Format)
	}
}

// planner accumulates validated members for one archive. Paths in kinds
// and linkPaths are relative to destDir.
type planner struct {
	destDir string
	maxSize int64
	// kinds records every planned path, including implicit parent dirs
	kinds map[string]MemberKind
	// linkPaths records every path a planned symlink's text walks through
	linkPaths map[string]struct{}
	plan      *ExtractionPlan
}

func (p *planner) planTarGz(archivePath string) error {
	return walkTarGz(archivePath, func(header *tar.Header, _ io.Reader) error {
		var kind MemberKind
		switch header.Typeflag {
		case tar.TypeDir:
			kind = MemberDir
		case tar.TypeReg:
			kind = MemberFile
		case tar.TypeSymlink:
			kind = MemberSymlink
		case tar.TypeLink:
			kind = MemberHardlink
		default:
			kind = MemberSkip
		}
		return p.add(header.Name, kind, os.FileMode(header.Mode).Perm(), header.Size, header.Linkname)
	})
}

func (p *planner) planZip(archivePath string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		mode := f.Mode()
		kind := MemberFile
		var linkName string

		switch {
		case mode.IsDir():
			kind = MemberDir
		case mode&os.ModeSymlink != 0:
			kind = MemberSymlink
			linkName, err = readZipLink(f)
			if err != nil {
				return err
			}
		case !mode.IsRegular():
			kind = MemberSkip
		}

		size := int64(f.UncompressedSize64)
		if f.UncompressedSize64 > uint64(p.maxSize) {
			size = p.maxSize + 1
		}
		if err := p.add(f.Name, kind, mode.Perm(), size, linkName); err != nil {
			return err
		}
	}

	return nil
}

// add validates one member and appends it to the plan.
func (p *planner) add(name string, kind MemberKind, mode os.FileMode, size int64, linkName string) error {
	target, rel, err := p.resolve(name)
	if err != nil {
		return err
	}

	member := PlannedMember{
		Name:   name,
		Target: target,
		Kind:   kind,
		Mode:   mode,
	}

	if kind == MemberSkip {
		p.plan.Members = append(p.plan.Members, member)
		return nil
	}

	if rel == "." {
		if kind != MemberDir {
			return fmt.Errorf("archive member %q has no file name", name)
		}
		p.plan.Members = append(p.plan.Members, member)
		return nil
	}

	// Symlinks are leaves: nothing may be written through one.
	if err := p.checkAncestors(name, rel, true); err != nil {
		return err
	}
	if err := p.checkTarget(name, rel, kind); err != nil {
		return err
	}

	switch kind {
	case MemberFile:
		if size > p.maxSize {
			return &EntryTooLargeError{MemberPath: name, Size: size, Limit: p.maxSize}
		}
		member.Size = size

	case MemberSymlink:
		if linkName == "" || filepath.IsAbs(linkName) || strings.HasPrefix(linkName, "/") {
			return &PathTraversalError{MemberPath: name}
		}
		resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkName))
		if !isWithin(p.destDir, resolved) {
			return &PathTraversalError{MemberPath: name}
		}
		if err := p.walkLink(name, rel, linkName); err != nil {
			return err
		}
		member.LinkName = linkName

	case MemberHardlink:
		source, sourceRel, err := p.resolve(linkName)
		if err != nil || sourceRel == "." {
			return &PathTraversalError{MemberPath: name}
		}
		if err := p.checkAncestors(name, sourceRel, false); err != nil {
			return err
		}
		sourceKind, found, err := p.kindOf(sourceRel)
		if err != nil {
			return err
		}
		switch {
		case !found:
			return fmt.Errorf("archive member %q links to missing %q", name, linkName)
		case sourceKind == MemberSymlink:
			return &PathTraversalError{MemberPath: name}
		case sourceKind == MemberDir:
			return &MemberConflictError{MemberPath: name, Path: filepath.ToSlash(sourceRel)}
		}
		member.LinkName = source
	}

	p.kinds[rel] = kind
	p.plan.Members = append(p.plan.Members, member)
	return nil
}

// resolve joins name onto the destination and checks containment.
// It returns the absolute target and its path relative to the destination.
func (p *planner) resolve(name string) (string, string, error) {
	target := filepath.Join(p.destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(p.destDir, target)
	if err != nil || !isRelWithin(rel) {
		return "", "", &PathTraversalError{MemberPath: name}
	}
	return target, rel, nil
}

// kindOf reports what rel is once the members planned so far are written:
// the planned kind if there is one, otherwise what is on disk.
func (p *planner) kindOf(rel string) (MemberKind, bool, error) {
	if kind, ok := p.kinds[rel]; ok {
		return kind, true, nil
	}

	info, err := os.Lstat(filepath.Join(p.destDir, rel))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return MemberSkip, false, nil
	case err != nil:
		return MemberSkip, false, fmt.Errorf("inspect %s: %w", rel, err)
	case info.Mode()&os.ModeSymlink != 0:
		return MemberSymlink, true, nil
	case info.IsDir():
		return MemberDir, true, nil
	default:
		return MemberFile, true, nil
	}
}

// checkAncestors requires every proper ancestor of rel to be a real
// directory, planned or on disk. Outermost ancestors are checked first so
// nothing is inspected through a link. With record set, missing ancestors
// are planned as implicit directories.
func (p *planner) checkAncestors(name, rel string, record bool) error {
	var dirs []string
	for dir := filepath.Dir(rel); dir != "."; dir = filepath.Dir(dir) {
		dirs = append(dirs, dir)
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		kind, found, err := p.kindOf(dirs[i])
		if err != nil {
			return err
		}
		switch {
		case !found:
			if record {
				p.kinds[dirs[i]] = MemberDir
			}
		case kind == MemberSymlink:
			return &PathTraversalError{MemberPath: name}
		case kind != MemberDir:
			return &MemberConflictError{MemberPath: name, Path: filepath.ToSlash(dirs[i])}
		}
	}
	return nil
}

// checkTarget rejects a member that would turn a directory into something
// else, or write a directory over a link or file.
func (p *planner) checkTarget(name, rel string, kind MemberKind) error {
	if kind == MemberSymlink {
		if _, walked := p.linkPaths[rel]; walked {
			return &PathTraversalError{MemberPath: name}
		}
	}

	existing, found, err := p.kindOf(rel)
	if err != nil || !found {
		return err
	}

	switch {
	case kind == MemberDir && existing == MemberSymlink:
		return &PathTraversalError{MemberPath: name}
	case (kind == MemberDir) != (existing == MemberDir):
		return &MemberConflictError{MemberPath: name, Path: filepath.ToSlash(rel)}
	}
	return nil
}

// walkLink follows the link text of the symlink at rel one component at a
// time. The walk must stay inside the destination and must not continue
// through another symlink. The final component may be a symlink only if it
// is planned in this archive, and so validated the same way.
func (p *planner) walkLink(name, rel, linkName string) error {
	var parts []string
	if dir := filepath.Dir(rel); dir != "." {
		parts = strings.Split(filepath.ToSlash(dir), "/")
	}

	var components []string
	for _, component := range strings.Split(filepath.ToSlash(linkName), "/") {
		if component != "" && component != "." {
			components = append(components, component)
		}
	}

	for i, component := range components {
		if component == ".." {
			if len(parts) == 0 {
				return &PathTraversalError{MemberPath: name}
			}
			parts = parts[:len(parts)-1]
			continue
		}

		parts = append(parts, component)
		current := filepath.Join(parts...)
		last := i == len(components)-1
		if !last {
			p.linkPaths[current] = struct{}{}
		}

		kind, found, err := p.kindOf(current)
		if err != nil {
			return err
		}
		if !found || kind != MemberSymlink {
			continue
		}
		if _, planned := p.kinds[current]; !last || !planned {
			return &PathTraversalError{MemberPath: name}
		}
	}

	if _, walked := p.linkPaths[rel]; walked {
		return &PathTraversalError{MemberPath: name}
	}
	return nil
}

// isWithin reports whether target is dir or a descendant of it. The check
// is component-wise, so "/opt/app-evil" is not within "/opt/app".
func isWithin(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return isRelWithin(rel)
}

func isRelWithin(rel string) bool {
	if filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (e *Extractor) applyTarGz(archivePath string, plan *ExtractionPlan) error {
	i := 0
	return walkTarGz(archivePath, func(header *tar.Header, r io.Reader) error {
		if i >= len(plan.Members) || plan.Members[i].Name != header.Name {
			return fmt.Errorf("archive %s changed since it was validated", archivePath)
		}
		member := plan.Members[i]
		i++
		return e.writeMember(plan.DestDir, member, r)
	})
}

func (e *Extractor) applyZip(archivePath string, plan *ExtractionPlan) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}
	defer r.Close()

	if len(r.File) != len(plan.Members) {
		return fmt.Errorf("archive %s changed since it was validated", archivePath)
	}

	for i, f := range r.File {
		member := plan.Members[i]
		if member.Name != f.Name {
			return fmt.Errorf("archive %s changed since it was validated", archivePath)
		}
		if member.Kind != MemberFile {
			if err := e.writeMember(plan.DestDir, member, nil); err != nil {
				return err
			}
			continue
		}

		if err := e.writeZipFile(f, plan.DestDir, member); err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) writeZipFile(f *zip.File, destDir string, member PlannedMember) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	return e.writeMember(destDir, member, rc)
}

// writeMember materializes one validated member. r supplies file contents.
func (e *Extractor) writeMember(destDir string, member PlannedMember, r io.Reader) error {
	if member.Kind == MemberSkip {
		return nil
	}
	if err := checkParents(destDir, member); err != nil {
		return err
	}

	switch member.Kind {
	case MemberDir:
		if member.Target != destDir {
			if info, err := os.Lstat(member.Target); err == nil && info.Mode()&os.ModeSymlink != 0 {
				return &PathTraversalError{MemberPath: member.Name}
			}
		}
		if err := os.MkdirAll(member.Target, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", member.Target, err)
		}

	case MemberFile:
		if err := prepareTarget(member.Target); err != nil {
			return err
		}

		mode := member.Mode
		if mode == 0 {
			mode = 0644
		}

		outFile, err := os.OpenFile(member.Target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			return fmt.Errorf("create file %s: %w", member.Target, err)
		}

		written, err := io.Copy(outFile, io.LimitReader(r, e.maxEntrySize+1))
		if err != nil {
			outFile.Close()
			return fmt.Errorf("write file %s: %w", member.Target, err)
		}
		if err := outFile.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", member.Target, err)
		}
		if written > e.maxEntrySize {
			os.Remove(member.Target)
			return &EntryTooLargeError{MemberPath: member.Name, Size: written, Limit: e.maxEntrySize}
		}

		// OpenFile applies the umask; restore the archived bits.
		if err := os.Chmod(member.Target, mode); err != nil {
			return fmt.Errorf("chmod %s: %w", member.Target, err)
		}

	case MemberSymlink:
		if err := prepareTarget(member.Target); err != nil {
			return err
		}
		if err := os.Symlink(member.LinkName, member.Target); err != nil {
			return fmt.Errorf("create symlink %s: %w", member.Target, err)
		}

	case MemberHardlink:
		if err := prepareTarget(member.Target); err != nil {
			return err
		}
		if err := os.Link(member.LinkName, member.Target); err != nil {
			return fmt.Errorf("create hardlink %s: %w", member.Target, err)
		}
	}

	return nil
}

// checkParents fails if any existing parent of the member's target below
// destDir is a symlink or not a directory.
func checkParents(destDir string, member PlannedMember) error {
	rel, err := filepath.Rel(destDir, member.Target)
	if err != nil || !isRelWithin(rel) {
		return &PathTraversalError{MemberPath: member.Name}
	}
	rel = filepath.Dir(rel)
	if rel == "." {
		return nil
	}

	current := destDir
	for _, component := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, component)
		info, err := os.Lstat(current)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("inspect %s: %w", current, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return &PathTraversalError{MemberPath: member.Name}
		}
		if !info.IsDir() {
			return fmt.Errorf("parent %s of archive member %q is not a directory", current, member.Name)
		}
	}
	return nil
}

// prepareTarget creates the parent directory and removes a symlink or file
// already at path, so writes never follow a link left from an earlier install.
func prepareTarget(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		return fmt.Errorf("cannot replace directory %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove existing %s: %w", path, err)
	}
	return nil
}

// walkTarGz calls fn for every header in a gzip-compressed tar file.
func walkTarGz(archivePath string, fn func(header *tar.Header, r io.Reader) error) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		if err := fn(header, tarReader); err != nil {
			return err
		}
	}
}

func readZipLink(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	link, err := io.ReadAll(io.LimitReader(rc, maxSymlinkTarget))
	if err != nil {
		return "", fmt.Errorf("read symlink %s: %w", f.Name, err)
	}
	return string(link), nil
}
