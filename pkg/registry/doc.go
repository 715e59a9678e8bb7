// SPDX-License-Identifier: MPL-2.0

// Package registry provides the live, in-memory index of installed resources.
//
// A [Server] indexes one kind of item by content hash and filename, keeps a
// blacklist of files the user removed, and a tag index fed by installed
// bundles. A [Provider] holds one Server per resource type and can populate
// them by scanning a resource root.
package registry
