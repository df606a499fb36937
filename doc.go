/*
go-routesight reads transit vehicle route identifiers out of a camera
stream and announces them by voice.  It is the detection and consensus
core of the Oculis navigation assistant packaged as a library, so the
detectors, speech output, and capture source are all supplied by the
caller.

Each delivered frame runs one cycle: a primary detector locates the
vehicle, the matching region is cropped, a secondary detector reads
character symbols inside the crop, and the symbols are stitched into a
candidate string.  Candidates accumulate in a bounded history which is
evaluated on a fixed cadence; a debounced majority vote decides when a
route identifier is handed to the announcer.

See example code and usage in the example subdirectory.
*/
package routesight
