// Package language selects the synthesis locale and optionally normalizes
// the transcript before response generation. Three strategies exist:
// passthrough, remote transliteration into the default locale's script, and
// deterministic text-based detection mapped through a closed locale table.
package language
