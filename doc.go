// gitview creates filtered views of a git commit history and maps edits made
// against a view back onto the history the view was derived from.
//
// A view is described by a small textual filter language (see [ParseFilter]),
// composed of tree transforms such as [Subdir], [Prefix], [Workspace], and
// their sequential composition [Chain]. [Apply] walks the original commit
// graph and materializes the filtered graph, recording the correspondence
// between original and filtered commits in a [ViewMaps]. [Unapply] uses the
// recorded correspondence to rebuild an original-history commit from a commit
// a user created on top of a filtered branch.
//
// See [Filter] for the transform contract and [ParseSpec] for the
// [source:target] spec file format.
package gitview
