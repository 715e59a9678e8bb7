// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	BundleNotFoundId Id = iota + 1
	BundleBrokenId
	BundleNotLoadedId
	ResourceRootMissingId
	InvalidBundleNameId
	BundleExistsId
	RecipeInvalidId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
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

// Render renders the issue Markdown with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also:\n")
		for _, link := range i.docLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	bundleNotFoundIssue = &Issue{
		id: BundleNotFoundId,
		mdMsg: `
# Bundle not found!

No bundle matches the name or file you gave.

## Things you can try:
- List the bundles respack knows about:
~~~
$ respack bundle list
~~~
- Pass the path of a ` + "`.bundle`" + ` file directly
- Check ` + "`bundles_dir`" + ` in your configuration:
~~~
$ respack config show
~~~`,
	}

	bundleBrokenIssue = &Issue{
		id: BundleBrokenId,
		mdMsg: `
# The bundle is broken!

The archive could be opened, but its manifest references files that are not
inside it, or one of ` + "`META-INF/manifest.xml`" + ` and ` + "`meta.xml`" + ` is missing.

## Things you can try:
- Run a full check to see which entries are missing:
~~~
$ respack bundle verify <bundle>
~~~
- Ask the author for a fresh copy of the bundle
- Rebuild it from its recipe with ` + "`respack bundle create`",
	}

	bundleNotLoadedIssue = &Issue{
		id: BundleNotLoadedId,
		mdMsg: `
# The bundle was not loaded!

Install and rename need a bundle whose archive loaded cleanly.

## Things you can try:
- Check the file is a valid bundle archive:
~~~
$ respack bundle verify <bundle>
~~~`,
	}

	resourceRootMissingIssue = &Issue{
		id: ResourceRootMissingId,
		mdMsg: `
# No resource root configured!

Bundles are installed below a resource root directory, and none is set.

## Things you can try:
- Set ` + "`resource_root`" + ` in your config file:
~~~cue
resource_root: "/home/me/.local/share/respack"
~~~
- Or export ` + "`RESPACK_RESOURCE_ROOT`" + ` before running respack`,
	}

	invalidBundleNameIssue = &Issue{
		id: InvalidBundleNameId,
		mdMsg: `
# Invalid bundle name!

Bundle names become directory names, so they may contain letters, digits,
underscores, spaces, dots, plus and minus signs only, and must not start with
a separator.

## Things you can try:
- Pick a simpler name:
~~~
$ respack bundle rename old.bundle sunset
~~~`,
	}

	bundleExistsIssue = &Issue{
		id: BundleExistsId,
		mdMsg: `
# A bundle with that name already exists!

respack refuses to overwrite an existing bundle file.

## Things you can try:
- Choose another output path with ` + "`--output`" + `
- Remove or rename the existing bundle first`,
	}

	recipeInvalidIssue = &Issue{
		id: RecipeInvalidId,
		mdMsg: `
# The bundle recipe is invalid!

Recipes are CUE files validated against the recipe schema.

## Example recipe:
~~~cue
name:   "sunset"
author: "Alice"
tags: ["warm"]
resources: [
	{type: "ko_gradients", file: "src/sunset.ggr", tags: ["sky"]},
]
~~~

## Things you can try:
- Check each resource type is one of ` + "`ko_gradients`, `ko_patterns`, `kis_brushes`, `ko_palettes`, `kis_workspaces`, `kis_paintoppresets`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be parsed or failed schema validation.

## Things you can try:
- Show where respack looks for its configuration:
~~~
$ respack config path
~~~
- Write a fresh default configuration:
~~~
$ respack config init
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

respack could not write to the bundle or the resource directories.

## Things you can try:
- Check the ownership of your resource root and bundles directory
- Make sure no other program holds the bundle file open`,
	}

	issues = map[Id]*Issue{
		bundleNotFoundIssue.Id():      bundleNotFoundIssue,
		bundleBrokenIssue.Id():        bundleBrokenIssue,
		bundleNotLoadedIssue.Id():     bundleNotLoadedIssue,
		resourceRootMissingIssue.Id(): resourceRootMissingIssue,
		invalidBundleNameIssue.Id():   invalidBundleNameIssue,
		bundleExistsIssue.Id():        bundleExistsIssue,
		recipeInvalidIssue.Id():       recipeInvalidIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
