// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	PackNotFoundId Id = iota + 1
	PackIndexMissingId
	PackParseErrorId
	RegistryUnreachableId
	RateLimitedId
	ConfigLoadFailedId
	TrackerSchemaUnsupportedId
	PackWriteFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	packNotFoundIssue = &Issue{
		id: PackNotFoundId,
		mdMsg: `
# Modpack not found!

We could not open the .mrpack file at the given path.

## Things you can try:
- Check the path for typos:
~~~
$ ls -l ./mypack.mrpack
~~~

- Pass the pack path explicitly:
~~~
$ mrpack-updater update ./mypack.mrpack --game-version 1.21 --loader fabric
~~~`,
	}

	packIndexMissingIssue = &Issue{
		id: PackIndexMissingId,
		mdMsg: `
# Pack index missing!

The archive opened fine, but it does not contain a ` + "`modrinth.index.json`" + ` at
its root. Every Modrinth modpack carries this manifest; without it there is
nothing to resolve.

## Things you can try:
- Verify the file is actually a Modrinth modpack, not a plain zip of mods:
~~~
$ unzip -l ./mypack.mrpack | head
~~~

- Re-export the pack from your launcher in the Modrinth (.mrpack) format.`,
		extLinks: []HttpLink{"https://support.modrinth.com/en/articles/8802351-modrinth-modpack-format-mrpack"},
	}

	packParseErrorIssue = &Issue{
		id: PackParseErrorId,
		mdMsg: `
# Failed to parse the pack manifest!

The ` + "`modrinth.index.json`" + ` inside the archive is not valid JSON, or does not
match the manifest format.

## Things you can try:
- Inspect the manifest directly:
~~~
$ unzip -p ./mypack.mrpack modrinth.index.json | head -n 20
~~~

- If you edited the manifest by hand, validate the JSON before re-zipping.`,
	}

	registryUnreachableIssue = &Issue{
		id: RegistryUnreachableId,
		mdMsg: `
# Could not reach the registry!

Requests to the Modrinth API failed. This is usually transient network
trouble or an outage on their side.

## Things you can try:
- Check your connectivity and retry.
- Check the registry status page.
- If you run against a mirror, verify the ` + "`api_base_url`" + ` in your config.`,
		extLinks: []HttpLink{"https://status.modrinth.com"},
	}

	rateLimitedIssue = &Issue{
		id: RateLimitedId,
		mdMsg: `
# Rate limited by the registry!

The registry rejected a request because too many were sent in a short window.
The error message includes how long to wait before the limit resets.

## Things you can try:
- Wait for the reported reset time and retry.
- Lower the fan-out in your config:
~~~toml
concurrency = 2
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file exists but could not be read or decoded.

## Things you can try:
- Check the TOML syntax of your config file.
- Remove the file to fall back to the built-in defaults.
- Print the expected location:
~~~
$ mrpack-updater config path
~~~`,
	}

	trackerSchemaUnsupportedIssue = &Issue{
		id: TrackerSchemaUnsupportedId,
		mdMsg: `
# Missing-items store is too new!

The missing-items store on disk was written by a newer release of
mrpack-updater and declares a schema this version does not understand.

## Things you can try:
- Upgrade mrpack-updater to the latest release.
- Or reset the store (the history of missing items is lost):
~~~
$ mrpack-updater missing clear
~~~`,
	}

	packWriteFailedIssue = &Issue{
		id: PackWriteFailedId,
		mdMsg: `
# Failed to write the rebuilt pack!

Resolution finished, but the output archive could not be written.

## Things you can try:
- Check that the output directory exists and is writable.
- Check free disk space.
- Write to a different location:
~~~
$ mrpack-updater update ./mypack.mrpack --game-version 1.21 --loader fabric -o /tmp/out.mrpack
~~~`,
	}

	issues = map[Id]*Issue{
		PackNotFoundId:             packNotFoundIssue,
		PackIndexMissingId:         packIndexMissingIssue,
		PackParseErrorId:           packParseErrorIssue,
		RegistryUnreachableId:      registryUnreachableIssue,
		RateLimitedId:              rateLimitedIssue,
		ConfigLoadFailedId:         configLoadFailedIssue,
		TrackerSchemaUnsupportedId: trackerSchemaUnsupportedIssue,
		PackWriteFailedId:          packWriteFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
