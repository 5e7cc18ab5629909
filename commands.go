package main

import (
	"fmt"
	"path/filepath"

	"github.com/elliotnunn/minitar/internal/tar"
	"github.com/elliotnunn/minitar/internal/tarindex"
	"gopkg.in/src-d/go-errors.v1"
)

// ErrConfig is returned for a command line that names no usable archive.
var ErrConfig = errors.NewKind("minitar: %s")

const (
	createDescription  = "Create an archive"
	createHelp         = createDescription + ", replacing any file already at ARCHIVE.tar.\nMembers are written in the order given."
	appendDescription  = "Append members to an archive"
	appendHelp         = appendDescription + ".\nThe end marker is stripped and written again after the new members."
	listDescription    = "List the members of an archive"
	listHelp           = listDescription + " in archive order."
	updateDescription  = "Append fresh copies of archived members"
	updateHelp         = updateDescription + ".\nEvery FILE must already be a member; otherwise nothing is written."
	extractDescription = "Extract an archive"
	extractHelp        = extractDescription + " beneath the current directory, or --dir.\nWhen a name occurs twice the later member wins."
	sumDescription     = "Print a content hash of each member"
	sumHelp            = sumDescription + " (xxhash64, hexadecimal)."
	indexDescription   = "Build a member index of an archive"
	indexHelp          = indexDescription + " so that get can skip the scan."
	getDescription     = "Extract single members using the index"
	getHelp            = getDescription + ".\nThe index is rebuilt first if the archive has changed length."
)

// writeFlags are shared by the verbs that write members.
type writeFlags struct {
	NumericIDs bool `short:"n" long:"numeric-owner" description:"Record owner and group ids instead of names"`
	EndBlocks  int  `long:"end-blocks" default:"2" description:"Number of zero blocks that end the archive"`
	Strict     bool `long:"strict" description:"Fail if a file changes size while it is archived"`
}

func (f *writeFlags) options(g *globalOptions) []tar.Option {
	opts := []tar.Option{tar.WithLogger(g.logger()), tar.WithEndMarker(f.EndBlocks)}
	if f.NumericIDs {
		opts = append(opts, tar.WithNumericIDs())
	}
	if f.Strict {
		opts = append(opts, tar.WithStrictSize())
	}
	return opts
}

type membersArgs struct {
	Archive string   `positional-arg-name:"ARCHIVE.tar"`
	Files   []string `positional-arg-name:"FILE" required:"1"`
}

type archiveArgs struct {
	Archive string `positional-arg-name:"ARCHIVE.tar"`
}

// checkArchive rejects archive names without a .tar extension, before any I/O.
func checkArchive(name string) error {
	if filepath.Ext(name) != ".tar" {
		return ErrConfig.New(fmt.Sprintf("archive %q must end in .tar", name))
	}
	return nil
}

type createCommand struct {
	writeFlags
	Args membersArgs `positional-args:"yes" required:"yes"`
	g    *globalOptions
}

func (c *createCommand) Execute(args []string) error {
	if err := checkArchive(c.Args.Archive); err != nil {
		return err
	}
	return tar.Create(c.Args.Archive, c.Args.Files, c.options(c.g)...)
}

type appendCommand struct {
	writeFlags
	Args membersArgs `positional-args:"yes" required:"yes"`
	g    *globalOptions
}

func (c *appendCommand) Execute(args []string) error {
	if err := checkArchive(c.Args.Archive); err != nil {
		return err
	}
	return tar.Append(c.Args.Archive, c.Args.Files, c.options(c.g)...)
}

type updateCommand struct {
	writeFlags
	Args membersArgs `positional-args:"yes" required:"yes"`
	g    *globalOptions
}

func (c *updateCommand) Execute(args []string) error {
	if err := checkArchive(c.Args.Archive); err != nil {
		return err
	}
	return tar.Update(c.Args.Archive, c.Args.Files, c.options(c.g)...)
}

type listCommand struct {
	Long  bool        `short:"l" long:"long" description:"Show mode, owner, size and time"`
	Match []string    `short:"m" long:"match" description:"Only members matching this pattern (repeatable, ** allowed)"`
	Args  archiveArgs `positional-args:"yes" required:"yes"`
	g     *globalOptions
}

func (c *listCommand) Execute(args []string) error {
	if err := checkArchive(c.Args.Archive); err != nil {
		return err
	}
	list, err := tar.List(c.Args.Archive, tar.WithLogger(c.g.logger()), tar.WithMatch(c.Match...))
	if err != nil {
		return err
	}
	for _, h := range list {
		if c.Long {
			fmt.Fprintf(stdout, "%v %s/%s %9d %s %s\n",
				h.FileInfo().Mode(), h.Uname, h.Gname, h.Size, h.ModTime.Format("2006-01-02 15:04"), h.Name)
		} else {
			fmt.Fprintln(stdout, h.Name)
		}
	}
	return nil
}

type extractCommand struct {
	Dir   string      `short:"C" long:"dir" env:"MINITAR_DIR" default:"." description:"Directory to extract into"`
	Match []string    `short:"m" long:"match" description:"Only members matching this pattern (repeatable, ** allowed)"`
	Args  archiveArgs `positional-args:"yes" required:"yes"`
	g     *globalOptions
}

func (c *extractCommand) Execute(args []string) error {
	if err := checkArchive(c.Args.Archive); err != nil {
		return err
	}
	return tar.Extract(c.Args.Archive, tar.WithLogger(c.g.logger()), tar.WithDir(c.Dir), tar.WithMatch(c.Match...))
}

type sumCommand struct {
	Match []string    `short:"m" long:"match" description:"Only members matching this pattern (repeatable, ** allowed)"`
	Args  archiveArgs `positional-args:"yes" required:"yes"`
	g     *globalOptions
}

func (c *sumCommand) Execute(args []string) error {
	if err := checkArchive(c.Args.Archive); err != nil {
		return err
	}
	sums, err := tar.Sum(c.Args.Archive, tar.WithLogger(c.g.logger()), tar.WithMatch(c.Match...))
	if err != nil {
		return err
	}
	for _, d := range sums {
		fmt.Fprintf(stdout, "%016x  %s\n", d.Sum, d.Name)
	}
	return nil
}

// indexFlags locate the index database.
type indexFlags struct {
	DB string `long:"db" env:"MINITAR_INDEX" description:"Index database directory (default ARCHIVE.tar.idx)"`
}

func (f *indexFlags) dir(archive string) string {
	if f.DB != "" {
		return f.DB
	}
	return archive + ".idx"
}

type indexCommand struct {
	indexFlags
	Args archiveArgs `positional-args:"yes" required:"yes"`
	g    *globalOptions
}

func (c *indexCommand) Execute(args []string) error {
	if err := checkArchive(c.Args.Archive); err != nil {
		return err
	}
	c.g.logger()
	idx, err := tarindex.Build(c.Args.Archive, c.dir(c.Args.Archive))
	if err != nil {
		return err
	}
	return idx.Close()
}

type getCommand struct {
	indexFlags
	Dir  string `short:"C" long:"dir" env:"MINITAR_DIR" default:"." description:"Directory to extract into"`
	Args struct {
		Archive string   `positional-arg-name:"ARCHIVE.tar"`
		Names   []string `positional-arg-name:"NAME" required:"1"`
	} `positional-args:"yes" required:"yes"`
	g *globalOptions
}

func (c *getCommand) Execute(args []string) error {
	if err := checkArchive(c.Args.Archive); err != nil {
		return err
	}
	log := c.g.logger()
	db := c.dir(c.Args.Archive)

	rebuilt := false
	idx, err := openFresh(db, c.Args.Archive)
	if err != nil {
		log.Info("indexRebuild", "db", db, "reason", err)
		if idx, err = tarindex.Build(c.Args.Archive, db); err != nil {
			return err
		}
		rebuilt = true
	}
	defer func() {
		if idx != nil {
			idx.Close()
		}
	}()

	for _, name := range c.Args.Names {
		err := idx.Extract(c.Args.Archive, name, tar.WithLogger(log), tar.WithDir(c.Dir))
		if tarindex.ErrStale.Is(err) && !rebuilt {
			// Same length, different content
			log.Info("indexRebuild", "db", db, "reason", err)
			idx.Close()
			if idx, err = tarindex.Build(c.Args.Archive, db); err != nil {
				return err
			}
			rebuilt = true
			err = idx.Extract(c.Args.Archive, name, tar.WithLogger(log), tar.WithDir(c.Dir))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// openFresh opens the index at db only if it still matches archive.
func openFresh(db, archive string) (*tarindex.Index, error) {
	idx, err := tarindex.Open(db)
	if err != nil {
		return nil, err
	}
	fresh, err := idx.Fresh(archive)
	if err == nil && !fresh {
		err = tarindex.ErrStale.New(archive, "archive length changed")
	}
	if err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}
