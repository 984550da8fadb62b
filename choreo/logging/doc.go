// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package logging configures the logrus logger used by coordinators, participants
and the vignette runner.

Entries produced on behalf of a participant carry the participant name and its
start index as fields. The text Formatter lays those out so that a transcript
of a choreography reads as columns, one per participant:

	[INFO]  0.0123          [bob]		=> 2
	[INFO]  0.0130        [alice]			=> 2
	[INFO]  0.0131     [observer]	=> 1

Entries without a participant field are attributed to the observer, the
goroutine driving the harness.
*/
package logging
